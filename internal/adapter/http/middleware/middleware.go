package middleware

import (
	"net/http"
	"strings"
	"time"

	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/internal/service"
	"gift-market-wallet/pkg/apperror"
	"gift-market-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys set by the middleware chain.
const (
	CtxUserID    = "auth_user_id"
	CtxUsername  = "auth_username"
	CtxSessionID = "auth_session_id"
	CtxRequestID = "request_id"
)

// RequestID assigns a request id to every request and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// JWTAuth validates the bearer token and installs the caller identity both
// in the gin context and in the request context, so services behind the
// handler see the same identity the middleware resolved.
func JWTAuth(tokens ports.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.AbortError(c, apperror.ErrInvalidToken())
			return
		}

		auth, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.AbortError(c, err)
			return
		}

		c.Set(CtxUserID, auth.UserID)
		c.Set(CtxUsername, auth.Username)
		c.Set(CtxSessionID, auth.SessionID)
		c.Request = c.Request.WithContext(service.WithAuthContext(c.Request.Context(), auth))
		c.Next()
	}
}

// AuthFromGin returns the identity installed by JWTAuth, or nil.
func AuthFromGin(c *gin.Context) *ports.AuthContext {
	auth, ok := service.AuthFromContext(c.Request.Context())
	if !ok {
		return nil
	}
	return auth
}

// RequestLogger logs one structured line per request, levelled by status.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		evt := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			evt = log.Error()
		case status >= http.StatusBadRequest:
			evt = log.Warn()
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery converts panics into a generic 500 without leaking internals.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				response.Error(c, apperror.InternalError(nil))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// MaxBodySize rejects request bodies larger than limit bytes.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
