package daemon

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pipedeck/console/internal/common"
	"github.com/pipedeck/console/internal/models"
)

const serviceName = "Pipedeck"

type TemplateData struct {
	ServiceName string
	Version     string
	Identity    string
	User        models.UserProfile
	Name        string
	Next        string
	Error       string
}

type ErrorPageData struct {
	TemplateData
	Error models.ErrorResponse
}

type IndexPageData struct {
	TemplateData
	Diagnostics []*models.LogEntry
}

func (s *Server) GetTemplateData(c *gin.Context) TemplateData {

	user := getUser(c)

	data := TemplateData{
		ServiceName: serviceName,
		Version:     common.GetVersion(),
		Identity:    s.Config.GetIdentityHostname(),
		User:        user,
	}

	if user != nil {
		data.Name = user.GetName()
	}

	return data
}

// getErrorPage handles the request for the error page
func (s *Server) getErrorPage(c *gin.Context, code int, message string, err ...error) {

	var messages []string

	if len(err) == 0 {
		logrus.WithField("code", code).Errorln(message)
	} else {
		for _, e := range err {
			if e == nil {
				continue
			}
			logrus.WithError(e).Errorln(message)
			messages = append(messages, e.Error())
		}
	}

	// Don't show error details for 500 status codes
	errorMessage := fmt.Sprintf("An internal error occurred. Details are available in the logs at: %s.", time.Now().UTC().Format("2006-01-02 15:04:05"))
	if code != http.StatusInternalServerError {
		errorMessage = strings.Join(messages, ". ")
	}

	errResponse := models.ErrorResponse{
		Code:    code,
		Title:   message,
		Message: errorMessage,
	}

	if s.canAcceptHtml(c) {
		c.Status(code)
		s.renderHtml(c, "error.html", ErrorPageData{
			TemplateData: s.GetTemplateData(c),
			Error:        errResponse,
		})
	} else {
		c.JSON(code, errResponse)
	}

	c.Abort()
}

func (s *Server) renderHtml(c *gin.Context, template string, data any) {

	c.Header("Content-Type", "text/html; charset=utf-8")

	err := s.GetTemplateEngine().ExecuteTemplate(c.Writer, template, data)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error rendering page: %v", err)
		return
	}
}

func (s *Server) getIndexPage(c *gin.Context) {

	data := IndexPageData{
		TemplateData: s.GetTemplateData(c),
	}

	if hook := s.Config.Diagnostics(); hook != nil {
		data.Diagnostics = hook.Recent(10)
	}

	s.renderHtml(c, "index.html", data)
}

func (s *Server) getLoginPage(c *gin.Context) {

	manager := getManager(c)
	manager.Initialize(c.Request.Context())

	next := safeNext(c.Query("next"))

	if manager.IsAuthenticated() {
		c.Redirect(http.StatusFound, next)
		return
	}

	data := s.GetTemplateData(c)
	data.Next = next
	data.Error = c.Query("error")

	s.renderHtml(c, "login.html", data)
}

// getDiagnostics lists recent warnings and errors recorded by the process.
func (s *Server) getDiagnostics(c *gin.Context) {

	entries := []*models.LogEntry{}

	if hook := s.Config.Diagnostics(); hook != nil {
		count := 50
		if limit, ok := c.GetQuery("limit"); ok {
			parsed, err := strconv.Atoi(limit)
			if err != nil || parsed <= 0 {
				s.getErrorPage(c, http.StatusBadRequest, "Invalid limit",
					fmt.Errorf("limit must be a positive integer, got %q", limit))
				return
			}
			count = parsed
		}
		entries = hook.Recent(count)
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
	})
}
