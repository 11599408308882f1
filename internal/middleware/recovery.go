package middleware

import (
	"runtime/debug"
	"socialwall/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				// 记录堆栈信息
				zap.L().Error("发生panic",
					zap.Any("error", r),
					zap.String("stack", string(debug.Stack())))

				apperr.Abort(c, apperr.New(apperr.ErrInternal, "Internal Server Error"))
			}
		}()
		c.Next()
	}
}
