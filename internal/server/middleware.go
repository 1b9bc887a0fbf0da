package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cozy-creator/cropguard/internal/api"
	"github.com/cozy-creator/cropguard/internal/metrics"
)

const RequestIDHeader = "X-Request-ID"

// RequestID keeps a caller-supplied X-Request-ID or assigns a new one, and
// echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		c.Set(api.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func withRequestID(c *gin.Context, l zerolog.Logger) zerolog.Logger {
	return l.With().Str("request_id", c.GetString(api.RequestIDKey)).Logger()
}

// Instrument counts requests by route template and status.
func Instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}
