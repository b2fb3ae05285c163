package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/middleware"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
	"github.com/xxxsen/eacrag/internal/pkg/response"
)

const notReadyDetail = "Starting up..."

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case appErr.IsNotReady(err):
		response.Error(c, http.StatusServiceUnavailable, notReadyDetail)
	case appErr.IsInvalid(err):
		response.Error(c, http.StatusBadRequest, "invalid request")
	default:
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
