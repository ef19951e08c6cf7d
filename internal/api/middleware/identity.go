package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader 上游認證閘道填入的使用者 ID
	UserIDHeader = "X-User-ID"
	// UserIDKey gin context 中的使用者 ID
	UserIDKey = "user_id"
)

// UserIdentity 將使用者 ID 放入 context，沒有時保持空字串（匿名）
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(UserIDHeader)); uid != "" {
			c.Set(UserIDKey, uid)
		}
		c.Next()
	}
}
