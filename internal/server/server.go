package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stockgate/stockgate/internal/config"
	"github.com/stockgate/stockgate/internal/provider"
	"github.com/stockgate/stockgate/internal/ratelimit"
	"github.com/stockgate/stockgate/internal/storage"
)

const projectHomepage = "https://github.com/stockgate/stockgate"

// Server wires the account store, the rate limiter and the quote
// fetcher behind the HTTP surface. Every collaborator is injected so
// tests can swap in fakes.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	accounts storage.AccountStore
	limiter  ratelimit.Limiter
	quotes   provider.QuoteFetcher
}

// New creates a server instance and registers its routes.
func New(cfg *config.Config, logger *zap.Logger, accounts storage.AccountStore, limiter ratelimit.Limiter, quotes provider.QuoteFetcher) *Server {
	gin.SetMode(cfg.Server.Mode)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   gin.New(),
		accounts: accounts,
		limiter:  limiter,
		quotes:   quotes,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Router returns the gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggerMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.index)
	s.router.GET("/health", s.healthCheck)

	// Signup is gated per client IP; there is no key to gate on yet.
	s.router.POST("/signup", s.ipRateLimitMiddleware(), s.signup)

	// The quote endpoint authenticates first, then applies the per-key
	// windows, then reaches upstream. Each step is terminal on failure.
	s.router.GET("/stock-info",
		s.apiKeyAuthMiddleware(),
		s.keyRateLimitMiddleware(),
		s.stockInfo,
	)
}

func (s *Server) index(c *gin.Context) {
	c.Redirect(302, projectHomepage)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
