package rest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sgics/sgics/internal/common"
	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/access"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	principalKey    = "principal"
)

// RequestLogger tags each request with an id (kept from X-Request-ID when
// the client sends one) and logs it once the handler chain returns.
func RequestLogger(l logging.Logger) gin.HandlerFunc {
	logger := l.With("module", "http")
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		c.Next()

		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		}
		if p, ok := principalFrom(c); ok && p.Authenticated {
			args = append(args, "user_id", p.UserID)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request", args...)
		} else {
			logger.Info(c.Request.Context(), "request", args...)
		}
	}
}

// Recovery turns a handler panic into a 500 and logs it.
func Recovery(l logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		l.Error(c.Request.Context(), "panic in handler", "request_id", c.GetString(requestIDKey), "panic", rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("internal error"))
	})
}

// Authenticate resolves "Authorization: Bearer <jwt>" into a principal. A
// request without the header is anonymous; a present but invalid or expired
// token is rejected with 401.
func Authenticate(users UserService, l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(principalKey, access.Anonymous)
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid authorization header"))
			return
		}

		p, err := users.Principal(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			switch {
			case errors.Is(err, common.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("token expired"))
			case errors.Is(err, common.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid token"))
			default:
				l.Error(c.Request.Context(), "principal lookup failed", "request_id", c.GetString(requestIDKey), "error", err.Error())
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireAuthenticated rejects anonymous callers with 401.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, _ := principalFrom(c); !p.Authenticated {
			c.Header("WWW-Authenticate", `Bearer realm="sgics"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("authentication required"))
			return
		}
		c.Next()
	}
}

// RequireRole applies access.Authorize to the request method. Denied
// requests get 403.
func RequireRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principalFrom(c)
		op := access.Classify(c.Request.Method)
		if !access.Authorize(p, op) {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody("staff or treasurer role required"))
			return
		}
		c.Next()
	}
}

// RequireStaff applies access.AuthorizeAdmin to the request method. It guards
// account administration, where the treasury capability does not apply.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principalFrom(c)
		if !access.AuthorizeAdmin(p, access.Classify(c.Request.Method)) {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody("staff role required"))
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (access.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return access.Anonymous, false
	}
	p, ok := v.(access.Principal)
	return p, ok
}
