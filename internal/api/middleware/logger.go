package middleware

import (
	"net/http"
	"time"

	"recipe-ai-gateway/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger 請求完成後記錄一行存取日誌，級別依狀態碼而定
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if c.FullPath() != "" {
			path = c.FullPath()
		}

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestid.Get(c)),
		}
		if uid := c.GetString(UserIDKey); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		accessLog(status)("請求完成", fields...)
	}
}

func accessLog(status int) func(string, ...zap.Field) {
	switch {
	case status >= http.StatusInternalServerError:
		return common.LogError
	case status >= http.StatusBadRequest:
		return common.LogWarn
	default:
		return common.LogInfo
	}
}

// Recovery 攔截 panic，記錄後返回 INTERNAL_ERROR
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				common.LogError("panic recovered",
					zap.Any("panic", r),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", requestid.Get(c)),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, common.ErrorResponse{
					Error: common.ErrInternalError.Message,
					Code:  common.ErrInternalError.Code,
				})
			}
		}()

		c.Next()
	}
}
