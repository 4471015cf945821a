package security

import (
	"strings"

	apperrors "github.com/ZanzyTHEbar/luwero-crop-advisor/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header names.
const (
	RequestIDHeader = "X-Request-ID"
	ClientIDHeader  = "X-Client-ID"
)

const maxIDLength = 128

// RequestID tags every request with an ID, reusing a well-formed incoming
// X-Request-ID. The ID is stored under apperrors.RequestIDKey and echoed in
// the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validID(id) {
			id = uuid.New().String()
		}

		c.Set(apperrors.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// ClientID identifies the caller for history ownership: the X-Client-ID
// header when present and well formed, else the client IP.
func ClientID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(ClientIDHeader)); validID(id) {
		return id
	}
	return c.ClientIP()
}

func validID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}
