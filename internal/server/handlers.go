package server

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stockgate/stockgate/internal/models"
	"github.com/stockgate/stockgate/internal/provider"
	"github.com/stockgate/stockgate/internal/storage"
)

// signup registers a new user and returns the freshly issued API key.
func (s *Server) signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid signup data: " + err.Error()})
		return
	}

	account, err := s.accounts.Create(c.Request.Context(), req.Name, req.LastName, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			c.JSON(409, gin.H{"error": "Email address already registered"})
			return
		}
		s.logger.Error("Failed to create account", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create account"})
		return
	}

	s.logger.Info("Account created",
		zap.String("account_id", account.ID),
		zap.String("key_prefix", maskAPIKey(account.APIKey)))

	c.JSON(201, models.SignupResponse{APIKey: account.APIKey})
}

// stockInfo proxies a quote lookup for the authenticated caller.
func (s *Server) stockInfo(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(400, gin.H{"error": "Symbol is missing"})
		return
	}

	quote, err := s.quotes.Fetch(c.Request.Context(), symbol)
	if err != nil {
		// The provider reason may carry upstream internals; it goes to
		// the log, not to the caller.
		var provErr *provider.Error
		if errors.As(err, &provErr) {
			s.logger.Warn("Provider lookup failed",
				zap.String("symbol", provErr.Symbol),
				zap.String("reason", provErr.Reason),
				zap.Error(provErr.Err))
		} else {
			s.logger.Error("Quote fetch failed", zap.Error(err))
		}
		c.JSON(502, gin.H{"error": "Failed to retrieve stock info from provider"})
		return
	}

	c.JSON(200, quote)
}
