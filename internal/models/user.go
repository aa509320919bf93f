package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrEmptyProfile = errors.New("user profile is empty")

// UserProfile describes the authenticated principal. Its fields are owned by
// the identity service; only presence or absence matters to the session core.
type UserProfile map[string]any

// ParseUserProfile decodes a serialized profile. Anything that is not a JSON
// object (including "null") is rejected.
func ParseUserProfile(data string) (UserProfile, error) {

	trimmed := bytes.TrimSpace([]byte(data))

	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyProfile
	}

	var profile UserProfile
	if err := json.Unmarshal(trimmed, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode user profile: %w", err)
	}

	if profile == nil {
		return nil, ErrEmptyProfile
	}

	return profile, nil
}

func (u UserProfile) Encode() (string, error) {
	if u == nil {
		return "", ErrEmptyProfile
	}

	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("failed to encode user profile: %w", err)
	}

	return string(data), nil
}

func (u UserProfile) getString(key string) string {
	value, ok := u[key]
	if !ok || value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	// ids decode as float64
	return fmt.Sprintf("%v", value)
}

func (u UserProfile) GetName() string {
	if name := u.getString("name"); len(name) > 0 {
		return name
	} else if username := u.getString("username"); len(username) > 0 {
		return username
	} else if email := u.getString("email"); len(email) > 0 {
		return email
	}
	return "Unknown"
}

func (u UserProfile) GetIdentity() string {
	if email := u.getString("email"); len(email) > 0 {
		return email
	} else if username := u.getString("username"); len(username) > 0 {
		return username
	} else if id := u.getString("id"); len(id) > 0 {
		return id
	}
	return u.GetName()
}
