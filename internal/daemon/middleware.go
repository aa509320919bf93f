package daemon

import (
	"net/http"
	"net/url"
	"strings"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pipedeck/console/internal/models"
	"github.com/pipedeck/console/internal/sessions"
	"github.com/pipedeck/console/internal/storage"
)

const (
	managerContextKey = "pipedeck.manager"
	userContextKey    = "pipedeck.user"
)

// sessionMiddleware attaches a session manager backed by the caller's
// cookie. The manager is not initialized until a handler needs it.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := storage.NewCookieStore(ginsessions.Default(c))
		manager := sessions.NewManager(
			store,
			s.identity,
			sessions.WithTimeout(s.Config.Identity.Timeout),
			sessions.WithAuthenticatedGauge(false),
		)
		c.Set(managerContextKey, manager)
		c.Next()
	}
}

func getManager(c *gin.Context) *sessions.Manager {
	return c.MustGet(managerContextKey).(*sessions.Manager)
}

func getUser(c *gin.Context) models.UserProfile {
	user, _ := c.Get(userContextKey)
	profile, _ := user.(models.UserProfile)
	return profile
}

// requireSession restores the caller's session and applies the gate.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {

		manager := getManager(c)
		manager.Initialize(c.Request.Context())

		decision := manager.Gate()

		switch decision.Action {
		case sessions.ActionLoading:
			if s.canAcceptHtml(c) {
				c.Status(http.StatusAccepted)
				s.renderHtml(c, "loading.html", s.GetTemplateData(c))
			} else {
				c.JSON(http.StatusAccepted, s.sessionResponse(manager))
			}
			c.Abort()

		case sessions.ActionRedirect:
			logrus.WithFields(logrus.Fields{
				"path":     c.Request.URL.Path,
				"location": decision.Location,
			}).Debugln("Unauthenticated request redirected")

			if s.canAcceptHtml(c) {
				c.Redirect(http.StatusFound, redirectLocation(decision.Location, c.Request.URL.Path))
			} else {
				c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Code:     http.StatusUnauthorized,
					Title:    "Unauthorized",
					Message:  "No active session",
					Location: decision.Location,
				})
			}
			c.Abort()

		default:
			c.Set(userContextKey, manager.State().User)
			c.Next()
		}
	}
}

// redirectLocation appends the originally requested path so the login page
// can send the user back afterwards.
func redirectLocation(location string, next string) string {
	if len(next) == 0 || next == "/" {
		return location
	}
	return location + "?next=" + url.QueryEscape(next)
}

// safeNext only allows local absolute paths as post-login targets. Browsers
// strip tabs and newlines and treat backslashes as slashes, so any of those
// could turn a path into a protocol-relative URL.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	if strings.ContainsFunc(next, func(r rune) bool { return r < 0x20 || r == 0x7f || r == '\\' }) {
		return "/"
	}
	parsed, err := url.Parse(next)
	if err != nil || len(parsed.Scheme) > 0 || len(parsed.Host) > 0 {
		return "/"
	}
	return next
}

func (s *Server) canAcceptHtml(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
