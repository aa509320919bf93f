// Package daemon serves the pipedeck dashboard. Every browser gets its own
// session manager backed by a signed cookie, and protected pages are guarded
// by the session gate.
package daemon

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pipedeck/console/internal/common"
	"github.com/pipedeck/console/internal/config"
	"github.com/pipedeck/console/internal/models"
	"github.com/pipedeck/console/internal/sessions"
)

// SessionCookieName holds the per-browser credential storage.
const SessionCookieName = "pipedeck_session"

//go:embed static/*
var staticFiles embed.FS

// Server represents the dashboard web service
type Server struct {
	Config         *config.Config
	TemplateEngine *template.Template
	StartTime      time.Time
	TotalRequests  int64

	identity sessions.IdentityService
	server   *http.Server
}

func NewServer(cfg *config.Config) (*Server, error) {

	client, err := cfg.NewIdentityClient()
	if err != nil {
		return nil, err
	}

	funcMap := template.FuncMap{
		"toJSON": func(v any) string {
			jsonBytes, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return fmt.Sprintf("Error: %v", err)
			}
			return string(jsonBytes)
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(staticFiles, "static/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		Config:         cfg,
		TemplateEngine: tmpl,
		StartTime:      time.Now().UTC(),
		identity:       client,
	}, nil
}

func (s *Server) GetConfig() *config.Config {
	return s.Config
}

func (s *Server) GetTemplateEngine() *template.Template {
	return s.TemplateEngine
}

// Router builds the gin engine with all middleware and routes attached.
func (s *Server) Router() *gin.Engine {

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(
		func(c *gin.Context, recovered any) {
			err, ok := recovered.(error)
			if !ok {
				err = fmt.Errorf("%v", recovered)
			}
			s.getErrorPage(c, http.StatusInternalServerError, "Internal Server Error", err)
		},
	))
	router.Use(s.requestCounterMiddleware())

	allowedOrigins := append([]string{
		s.Config.GetLocalServerUrl(),
	}, s.Config.Server.Security.AllowedOrigins...)

	logrus.WithFields(logrus.Fields{
		"allowedOrigins": allowedOrigins,
	}).Debugln("CORS configuration")

	router.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Accept",
			"X-Requested-With",
		},
		AllowCredentials: true,
		AllowWildcard:    true,
	}))

	router.Use(ginsessions.Sessions(SessionCookieName, getSessionStore(s.Config.Server.Secret)))
	router.Use(s.sessionMiddleware())

	router.SetHTMLTemplate(s.TemplateEngine)

	s.setupRoutes(router)

	return router
}

// Start initializes and starts the web service
func (s *Server) Start() error {

	gin.SetMode(gin.ReleaseMode)

	addr := s.Config.GetListenAddress()

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.server = server

	errChan := make(chan error, 1)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait a moment to see if the server fails to start
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start server: %w", err)
	case <-time.After(100 * time.Millisecond):
		logrus.WithField("address", s.Config.GetLocalServerUrl()).Infoln("Dashboard started")
		return nil
	}
}

func (s *Server) Stop() {
	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Errorln("Server shutdown failed")
	}
	logrus.Infoln("Dashboard stopped")
}

// requestCounterMiddleware increments the request counter
func (s *Server) requestCounterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		atomic.AddInt64(&s.TotalRequests, 1)
		c.Next()
	}
}

func (s *Server) setupRoutes(router *gin.Engine) {

	router.GET("/styles.css", s.getStyle)
	router.GET("/health", s.healthHandler)

	if s.Config.Server.Metrics.Enabled {
		router.GET(s.Config.Server.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	router.GET(sessions.LoginPath, s.getLoginPage)

	api := router.Group("/api")
	{
		api.GET("/session", s.getSession)
		api.POST("/session", s.postSession)
		api.POST("/session/logout", s.postSessionLogout)
		api.POST("/session/refresh", s.postSessionRefresh)
	}

	protected := router.Group("/", s.requireSession())
	{
		protected.GET("/", s.getIndexPage)
		protected.GET("/api/diagnostics", s.getDiagnostics)
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:        models.HealthStatusHealthy,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       common.GetVersion(),
		Uptime:        time.Since(s.StartTime).Round(time.Second).String(),
		TotalRequests: atomic.LoadInt64(&s.TotalRequests),
	})
}

func (s *Server) getStyle(c *gin.Context) {
	c.FileFromFS("static/styles.css", http.FS(staticFiles))
}

func getSessionStore(secret string) ginsessions.Store {
	if len(secret) == 0 {
		// Sessions will not survive a restart
		logrus.Warnln("No server.secret configured, generating an ephemeral cookie secret")
		secret = uuid.NewString()
	}

	store := cookie.NewStore([]byte(secret))
	store.Options(ginsessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}
