package storage

import (
	"github.com/gin-contrib/sessions"
)

// CookieStore adapts a browser cookie session to Store. It gives every
// dashboard visitor their own durable storage, the same way a browser's
// local storage would.
type CookieStore struct {
	session sessions.Session
}

func NewCookieStore(session sessions.Session) *CookieStore {
	return &CookieStore{session: session}
}

func (c *CookieStore) Get(key string) (string, bool, error) {
	value, ok := c.session.Get(key).(string)
	if !ok {
		return "", false, nil
	}
	return value, true, nil
}

func (c *CookieStore) Set(key string, value string) error {
	c.session.Set(key, value)
	return c.session.Save()
}

func (c *CookieStore) Remove(keys ...string) error {
	for _, key := range keys {
		c.session.Delete(key)
	}
	return c.session.Save()
}
