package recipe

import (
	"net/http"

	"recipe-ai-gateway/internal/api/middleware"
	"recipe-ai-gateway/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 以分類後的狀態碼輸出錯誤，未分類錯誤一律為 INTERNAL_ERROR
func respondError(c *gin.Context, err error) {
	ce, ok := common.AsCustomError(err)
	if !ok {
		common.LogError("未分類的錯誤",
			zap.String("request_id", requestid.Get(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		ce = common.ErrInternalError
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, common.ErrorResponse{
		Success: false,
		Error:   ce.Message,
		Code:    ce.Code,
	})
}

// respondSuccess 輸出 {success: true, data}
func respondSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// userID 由 middleware.UserIdentity 設定，匿名時為空字串
func userID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}
