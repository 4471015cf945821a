// Package security holds the HTTP hardening middlewares: response headers,
// body and content-type limits, request deadlines, request IDs and client
// identification.
package security

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/luwero-crop-advisor/internal/errors"
	"github.com/gin-gonic/gin"
)

// SecurityConfig holds security configuration. Only TrustedProxies may set
// the client IP through X-Forwarded-For; nil trusts no proxy.
type SecurityConfig struct {
	MaxBodyBytes   int64         `json:"max_body_bytes"`
	RequestTimeout time.Duration `json:"request_timeout"`
	EnableHSTS     bool          `json:"enable_hsts"`
	TrustedProxies []string      `json:"trusted_proxies"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxBodyBytes:   64 << 10,
		RequestTimeout: 45 * time.Second,
	}
}

// SecurityMiddleware provides the request hardening middlewares.
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

// ApplyTrustedProxies restricts which peers gin believes about forwarded
// client addresses. Invalid entries leave the engine trusting no proxy.
func (sm *SecurityMiddleware) ApplyTrustedProxies(engine *gin.Engine) error {
	if err := engine.SetTrustedProxies(sm.config.TrustedProxies); err != nil {
		_ = engine.SetTrustedProxies(nil)
		return fmt.Errorf("set trusted proxies: %w", err)
	}
	return nil
}

// ValidateContentType rejects request bodies that are not JSON.
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	if c.Request.ContentLength == 0 || c.Request.Method == http.MethodGet {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
		appErr := apperrors.NewValidationError("Content-Type must be application/json")
		appErr.HTTPStatus = http.StatusUnsupportedMediaType
		apperrors.Respond(c, appErr)
		return
	}

	c.Next()
}

// LimitBody caps the request body size.
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if sm.config.MaxBodyBytes > 0 && c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout enforces request timeout
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	if sm.config.RequestTimeout <= 0 {
		c.Next()
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}
