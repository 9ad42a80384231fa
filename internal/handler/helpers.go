package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mpan/internal/middleware"
	"github.com/xxxsen/mpan/internal/pkg/errcode"
	appErr "github.com/xxxsen/mpan/internal/pkg/errors"
	"github.com/xxxsen/mpan/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	switch {
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrAlreadyShared):
		response.Error(c, errcode.ErrAlreadyShared, "file already shared")
	case errors.Is(err, appErr.ErrLinkFailed):
		response.Error(c, errcode.ErrLinkFailed, "share link failed")
	case errors.Is(err, appErr.ErrLinkExpired):
		response.Error(c, errcode.ErrLinkExpired, "share link expired")
	case errors.Is(err, appErr.ErrMissingParam):
		response.Error(c, errcode.ErrMissingParam, "missing parameter")
	case errors.Is(err, appErr.ErrNotFolder):
		response.Error(c, errcode.ErrNotFolder, "not a folder")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case appErr.IsConflict(err):
		response.Error(c, errcode.ErrConflict, "conflict")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
