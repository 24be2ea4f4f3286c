// Package api provides the HTTP API server for the stashy backend.
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/stashyhq/stashy/internal/config"
	"github.com/stashyhq/stashy/internal/logging"
	"github.com/stashyhq/stashy/internal/reader"
	"github.com/stashyhq/stashy/internal/store"
	"github.com/stashyhq/stashy/internal/xauth"
)

// Server wires the HTTP routes to the access layer, store and reader.
type Server struct {
	engine *gin.Engine
	cfg    *config.Config

	x      *xauth.Client
	tweets store.Store // nil when no DSN is configured
	reader *reader.Reader

	// readLimiter caps the read-article endpoint; article extraction
	// hits arbitrary third-party sites and must not be an open proxy.
	readLimiter *rate.Limiter

	secureCookies bool
}

// Options carries the collaborators the server routes to.
type Options struct {
	Config *config.Config
	XAuth  *xauth.Client
	Store  store.Store
	Reader *reader.Reader

	// SecureCookies marks credential cookies Secure; enable in
	// production deployments behind TLS.
	SecureCookies bool
}

// NewServer builds the gin engine with all middleware and routes
// registered.
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	perMinute := opts.Config.Reader.RequestsPerMinute
	s := &Server{
		engine:        engine,
		cfg:           opts.Config,
		x:             opts.XAuth,
		tweets:        opts.Store,
		reader:        opts.Reader,
		readLimiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		secureCookies: opts.SecureCookies,
	}

	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())
	engine.Use(requestIDMiddleware())
	engine.Use(corsMiddleware())

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := s.engine.Group("/api/auth/x")
	{
		auth.GET("", s.handleConnect)
		auth.GET("/callback", s.handleCallback)
		auth.GET("/disconnect", s.handleDisconnect)
		auth.POST("/disconnect", s.handleDisconnect)
		auth.GET("/status", s.handleStatus)
	}

	x := s.engine.Group("/api/x")
	{
		x.GET("/bookmarks", s.handleBookmarks)
		x.POST("/sync", s.handleSync)
	}

	s.engine.GET("/api/tweets", s.handleListTweets)
	s.engine.GET("/api/tweets/:tweetID", s.handleGetTweet)
	s.engine.GET("/api/read-article", s.handleReadArticle)
}

// ApplyConfig applies the hot-reloadable settings from a freshly
// loaded config. Covers the read-article rate limit; port and
// credentials need a restart.
func (s *Server) ApplyConfig(next *config.Config) {
	perMinute := next.Reader.RequestsPerMinute
	s.readLimiter.SetLimit(rate.Limit(float64(perMinute) / 60.0))
	s.readLimiter.SetBurst(perMinute)
}

// Handler exposes the underlying http.Handler, used by tests.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	return s.engine.Run(addr)
}
