package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"newsrelay/internal/auth"
	"newsrelay/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
	accountKey      = "account"
)

// requestLogger tags each request with an ID and logs it once it completes.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}

		s.log.Log(c.Request.Context(), level, "Request handled",
			"requestID", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latencyMs", time.Since(start).Milliseconds())
	}
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			writeError(c, http.StatusUnauthorized, "unauthorized", "A bearer token is required.")
			c.Abort()
			return
		}

		a, err := s.accounts.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(c, http.StatusUnauthorized, "unauthorized", "The token is invalid or has expired.")
			} else {
				s.log.ErrorContext(c.Request.Context(), "Failed to authenticate request",
					"requestID", c.GetString(requestIDKey),
					"error", err)
				writeError(c, http.StatusInternalServerError, "internal", "Internal server error.")
			}
			c.Abort()
			return
		}

		c.Set(accountKey, a)
		c.Next()
	}
}

func currentAccount(c *gin.Context) (domain.Account, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return domain.Account{}, false
	}
	a, ok := v.(domain.Account)
	return a, ok
}
