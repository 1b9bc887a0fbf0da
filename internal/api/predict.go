package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cozy-creator/cropguard/internal/app"
	"github.com/cozy-creator/cropguard/internal/classifier"
	"github.com/cozy-creator/cropguard/internal/imageutil"
	"github.com/cozy-creator/cropguard/internal/utils/hashutil"
	"github.com/cozy-creator/cropguard/internal/worker"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// multipart headers and boundaries on top of the file itself
const formOverhead = 1 << 20

func Predict(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	logger := app.Logger.With(zap.String("request_id", c.GetString(RequestIDKey)))
	maxBytes := app.Config().MaxUploadBytes()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "file field is required"})
		return
	}

	if file.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "file is too large"})
		return
	}

	content, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to open file"})
		return
	}
	defer content.Close()

	raw, err := io.ReadAll(content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read file"})
		return
	}

	logger.Debug("Received upload",
		zap.String("filename", file.Filename),
		zap.Int("bytes", len(raw)),
		zap.String("digest", hashutil.Blake3Hash(raw)),
	)

	result, err := app.Classify(c.Request.Context(), raw)
	if err != nil {
		status, message := errorStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Prediction failed", zap.Error(err))
		} else {
			logger.Info("Rejected upload", zap.String("filename", file.Filename), zap.Error(err))
		}
		c.JSON(status, gin.H{"message": message})
		return
	}

	c.JSON(http.StatusOK, result)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, imageutil.ErrDecode):
		return http.StatusBadRequest, "invalid image"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "prediction timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "request cancelled"
	case errors.Is(err, classifier.ErrModelUnavailable), errors.Is(err, worker.ErrWorkerStopped):
		return http.StatusServiceUnavailable, "model is not available"
	default:
		return http.StatusInternalServerError, "prediction failed"
	}
}
