package daemon

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pipedeck/console/internal/models"
	"github.com/pipedeck/console/internal/sessions"
)

func (s *Server) sessionResponse(manager *sessions.Manager) models.SessionResponse {

	state := manager.State()

	response := models.SessionResponse{
		Authenticated: state.IsAuthenticated(),
		Loading:       state.IsLoading,
		Phase:         state.Phase.String(),
		User:          state.User,
	}

	if state.User != nil {
		response.Name = state.User.GetName()
	}

	if failure := manager.LastError(); failure != nil {
		response.LastError = failure.Error()
	}

	return response
}

// getSession reports the caller's session after restoring it from the cookie.
func (s *Server) getSession(c *gin.Context) {
	manager := getManager(c)
	manager.Initialize(c.Request.Context())
	c.JSON(http.StatusOK, s.sessionResponse(manager))
}

// postSession stores a credential the caller already obtained from the
// identity service. It accepts JSON or the login form.
func (s *Server) postSession(c *gin.Context) {

	if c.ContentType() == gin.MIMEJSON {
		s.postSessionJSON(c)
		return
	}

	next := safeNext(c.PostForm("next"))

	request := models.LoginRequest{
		Token:     c.PostForm("token"),
		SessionID: c.PostForm("session_id"),
	}

	profile, err := models.ParseUserProfile(c.PostForm("user"))
	if err != nil {
		s.redirectToLogin(c, next, err)
		return
	}
	request.User = profile

	if err := s.login(c, request); err != nil {
		s.redirectToLogin(c, next, err)
		return
	}

	c.Redirect(http.StatusSeeOther, next)
}

func (s *Server) postSessionJSON(c *gin.Context) {

	var request models.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.getErrorPage(c, http.StatusBadRequest, "Invalid login request", err)
		return
	}

	if err := s.login(c, request); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, sessions.ErrMissingToken) || errors.Is(err, models.ErrEmptyProfile) {
			code = http.StatusBadRequest
		}
		s.getErrorPage(c, code, "Login failed", err)
		return
	}

	c.JSON(http.StatusOK, s.sessionResponse(getManager(c)))
}

func (s *Server) login(c *gin.Context, request models.LoginRequest) error {

	err := getManager(c).Login(request.Token, request.SessionID, request.User)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user": request.User.GetIdentity(),
	}).Infoln("Dashboard login")

	return nil
}

func (s *Server) redirectToLogin(c *gin.Context, next string, err error) {

	logrus.WithError(err).Warnln("Dashboard login rejected")

	query := url.Values{}
	query.Set("error", err.Error())
	if next != "/" {
		query.Set("next", next)
	}

	c.Redirect(http.StatusSeeOther, sessions.LoginPath+"?"+query.Encode())
}

// postSessionLogout ends the caller's session. The cookie is always cleared,
// even when the identity service could not be told.
func (s *Server) postSessionLogout(c *gin.Context) {

	manager := getManager(c)
	result := manager.Logout(c.Request.Context())

	if result.Err != nil {
		logrus.WithError(result.Err).Warnln("Dashboard logout completed with errors")
	}

	if s.canAcceptHtml(c) {
		c.Redirect(http.StatusSeeOther, sessions.LoginPath)
		return
	}

	c.JSON(http.StatusOK, s.sessionResponse(manager))
}

// postSessionRefresh re-validates the caller's credential.
func (s *Server) postSessionRefresh(c *gin.Context) {

	manager := getManager(c)
	result := manager.RefreshUser(c.Request.Context())

	code := http.StatusOK
	if !result.State.IsAuthenticated() {
		code = http.StatusUnauthorized
	}

	c.JSON(code, s.sessionResponse(manager))
}
