package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

var errorStatusMap = map[ErrorCode]int{
	ErrInternal: http.StatusInternalServerError,
	ErrDatabase: http.StatusInternalServerError,
	ErrStorage:  http.StatusInternalServerError,

	ErrUnauthorized:       http.StatusUnauthorized,
	ErrForbidden:          http.StatusForbidden,
	ErrInvalidToken:       http.StatusUnauthorized,
	ErrInvalidCredentials: http.StatusUnauthorized,

	ErrValidation: http.StatusBadRequest,
	ErrNotFound:   http.StatusNotFound,
	ErrConflict:   http.StatusConflict,
}

// Status maps an error onto its HTTP status.
func Status(err error) int {
	status, ok := errorStatusMap[CodeOf(err)]
	if !ok {
		return http.StatusInternalServerError
	}
	return status
}

// HandleError 统一处理错误响应
func HandleError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}

	status := Status(appErr)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err))
		c.JSON(status, ErrorResponse{Message: "Internal Server Error"})
		return
	}

	if appErr.Code == ErrValidation {
		c.JSON(status, ErrorResponse{Message: appErr.Message, Errors: appErr.Fields})
		return
	}
	c.JSON(status, ErrorResponse{Message: appErr.Message})
}

// Abort renders err and stops the handler chain.
func Abort(c *gin.Context, err error) {
	HandleError(c, err)
	c.Abort()
}
