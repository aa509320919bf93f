package storage

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCookieRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(sessions.Sessions("pipedeck", cookie.NewStore([]byte("test-secret-test-secret-32bytes!"))))

	router.GET("/set", func(c *gin.Context) {
		store := NewCookieStore(sessions.Default(c))
		if err := store.Set(c.Query("key"), c.Query("value")); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	router.GET("/get", func(c *gin.Context) {
		store := NewCookieStore(sessions.Default(c))
		value, ok, _ := store.Get(c.Query("key"))
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.String(http.StatusOK, value)
	})

	router.GET("/remove", func(c *gin.Context) {
		store := NewCookieStore(sessions.Default(c))
		if err := store.Remove(c.Query("key")); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	return router
}

func doWithCookies(router *gin.Engine, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCookieStore(t *testing.T) {
	router := newCookieRouter()

	w := doWithCookies(router, "/get?key=auth_token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doWithCookies(router, "/set?key=auth_token&value=tok1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = doWithCookies(router, "/get?key=auth_token", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok1", w.Body.String())

	w = doWithCookies(router, "/remove?key=auth_token", cookies)
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies = w.Result().Cookies()

	w = doWithCookies(router, "/get?key=auth_token", cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
