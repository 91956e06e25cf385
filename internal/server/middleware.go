package server

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stockgate/stockgate/internal/models"
	"github.com/stockgate/stockgate/internal/storage"
)

// accountContextKey is where the auth middleware stashes the resolved
// account for downstream handlers.
const accountContextKey = "account"

// loggerMiddleware logs HTTP requests
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		s.logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// apiKeyAuthMiddleware resolves the API-Key header to an account. A
// missing or unknown key terminates the request before the rate
// limiter or the upstream provider are ever consulted.
func (s *Server) apiKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "API key is missing"})
			return
		}

		account, err := s.accounts.Lookup(c.Request.Context(), apiKey)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("Invalid API key attempt",
					zap.String("key_prefix", maskAPIKey(apiKey)),
					zap.String("client_ip", c.ClientIP()))
				c.AbortWithStatusJSON(401, gin.H{"error": "Invalid API key"})
				return
			}
			s.logger.Error("Account lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(500, gin.H{"error": "Internal error"})
			return
		}

		c.Set(accountContextKey, account)
		c.Next()
	}
}

// keyRateLimitMiddleware applies the per-key windows. It runs after
// authentication, so the limiter only ever tracks keys that exist.
func (s *Server) keyRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.MustGet(accountContextKey).(*models.Account)
		s.enforceRateLimit(c, "key:"+account.APIKey)
	}
}

// ipRateLimitMiddleware applies the same windows per client IP, for
// endpoints that run before any key is issued.
func (s *Server) ipRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "local"
		}
		s.enforceRateLimit(c, "ip:"+ip)
	}
}

// enforceRateLimit asks the limiter to admit the request and turns a
// rejection into a 429 with a retry hint. The limiter returns before
// any upstream I/O starts, so its internal lock is never held across
// the provider call.
func (s *Server) enforceRateLimit(c *gin.Context, limiterKey string) {
	decision, err := s.limiter.Admit(c.Request.Context(), limiterKey)
	if err != nil {
		// Counter backend unavailable; let the request through rather
		// than failing the whole API surface.
		s.logger.Error("Rate limiter unavailable", zap.Error(err))
		c.Next()
		return
	}

	if !decision.Allowed {
		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(429, gin.H{
			"error":               "Too many requests. Please wait and try again.",
			"retry_after_seconds": retryAfter,
		})
		return
	}

	c.Next()
}

// maskAPIKey returns a masked version of the API key for logging
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
