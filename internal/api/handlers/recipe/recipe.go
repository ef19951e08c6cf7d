package recipe

import (
	"context"

	recipeService "recipe-ai-gateway/internal/core/recipe"
	"recipe-ai-gateway/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GenerateRequest 依食材生成食譜
type GenerateRequest struct {
	Ingredients string `json:"ingredients"`
}

// GenerateResponse 生成結果
type GenerateResponse struct {
	Recipes []common.RecipeDraft `json:"recipes"`
}

// ChatRequest 對某道食譜提問
type ChatRequest struct {
	Message string               `json:"message"`
	Context common.ChatContext   `json:"context"`
	History []common.ChatMessage `json:"history,omitempty"`
}

// Generator 食譜生成
type Generator interface {
	Generate(ctx context.Context, req common.GenerationRequest) ([]common.RecipeDraft, error)
}

// Chatter 食譜對話
type Chatter interface {
	Chat(ctx context.Context, recipeID, message string, rc common.ChatContext, history []common.ChatMessage) (*common.ChatReply, error)
}

// Handler 食譜處理程序
type Handler struct {
	generator Generator
	chatter   Chatter
}

// NewHandler 創建新的食譜處理程序
func NewHandler(generator Generator, chatter Chatter) *Handler {
	return &Handler{
		generator: generator,
		chatter:   chatter,
	}
}

var (
	_ Generator = (*recipeService.GenerationService)(nil)
	_ Chatter   = (*recipeService.ChatService)(nil)
)

// HandleGenerate POST /recipes/generate
func (h *Handler) HandleGenerate(c *gin.Context) {
	requestID := requestid.Get(c)

	common.LogInfo("開始處理食譜生成請求",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
	)

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		respondError(c, common.NewValidationError("invalid request body"))
		return
	}

	drafts, err := h.generator.Generate(c.Request.Context(), common.GenerationRequest{
		IngredientsText:  req.Ingredients,
		RequestingUserID: userID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, GenerateResponse{Recipes: drafts})
}

// HandleChat POST /recipes/:id/chat
func (h *Handler) HandleChat(c *gin.Context) {
	requestID := requestid.Get(c)
	recipeID := c.Param("id")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		respondError(c, common.NewValidationError("invalid request body"))
		return
	}

	reply, err := h.chatter.Chat(c.Request.Context(), recipeID, req.Message, req.Context, req.History)
	if err != nil {
		respondError(c, err)
		return
	}

	// 保留上游其他欄位，reply 以整理後的文字為準
	data := make(map[string]any, len(reply.Raw)+2)
	for k, v := range reply.Raw {
		data[k] = v
	}
	if reply.Reply != "" {
		data["message"] = reply.Reply
	}
	data["reply"] = reply.Reply

	respondSuccess(c, data)
}
