// Package identitytest runs an in-process identity service for tests.
package identitytest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pipedeck/console/internal/identity"
	"github.com/pipedeck/console/internal/models"
)

// Server answers /api/auth/me and /api/auth/logout for granted tokens.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	users         map[string]models.UserProfile
	meStatus      int
	meCalls       int
	logoutCalls   int
	lastSessionID string
	lastRequestID string
}

func NewServer(t testing.TB) *Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	s := &Server{
		users: make(map[string]models.UserProfile),
	}

	router := gin.New()
	router.GET(identity.MePath, s.getMe)
	router.POST(identity.LogoutPath, s.postLogout)

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)

	return s
}

// Grant makes token resolve to profile.
func (s *Server) Grant(token string, profile models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[token] = profile
}

func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, token)
}

// FailMe forces every /me call to answer with status. Zero restores normal
// behaviour.
func (s *Server) FailMe(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meStatus = status
}

func (s *Server) MeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meCalls
}

func (s *Server) LogoutCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutCalls
}

func (s *Server) LastSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSessionID
}

func (s *Server) LastRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequestID
}

func (s *Server) record(c *gin.Context) string {
	s.lastSessionID = c.GetHeader(identity.HeaderSessionID)
	s.lastRequestID = c.GetHeader(identity.HeaderRequestID)
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

func (s *Server) getMe(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meCalls++
	token := s.record(c)

	if s.meStatus != 0 {
		c.JSON(s.meStatus, gin.H{"error": "forced failure"})
		return
	}

	profile, ok := s.users[token]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.JSON(http.StatusOK, models.IdentityResponse{User: profile})
}

func (s *Server) postLogout(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logoutCalls++
	token := s.record(c)
	delete(s.users, token)

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
