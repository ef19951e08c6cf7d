package recipe

import (
	"context"
	"net/http"
	"strings"

	"recipe-ai-gateway/internal/infrastructure/metrics"
	"recipe-ai-gateway/internal/pkg/common"

	"go.uber.org/zap"
)

// invalidReplyMessage 對話 webhook 回應無法解讀
const invalidReplyMessage = "invalid response from AI chef"

// 回覆文字依序嘗試的欄位
var replyFields = []string{"reply", "message", "output", "text", "content"}

// ChatPoster 對話 webhook
type ChatPoster interface {
	Post(ctx context.Context, body any) ([]byte, error)
}

// ChatService 食譜對話代理
type ChatService struct {
	poster ChatPoster
}

// NewChatService 創建對話服務
func NewChatService(poster ChatPoster) *ChatService {
	return &ChatService{poster: poster}
}

type chatRequest struct {
	RecipeID string               `json:"recipeId"`
	Message  string               `json:"message"`
	Context  common.ChatContext   `json:"context"`
	History  []common.ChatMessage `json:"history"`
}

// Chat 轉送使用者對某道食譜的提問。內容驗證失敗時不會發出任何請求。
func (s *ChatService) Chat(ctx context.Context, recipeID, message string, rc common.ChatContext, history []common.ChatMessage) (*common.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, s.fail(common.NewValidationError("message is required"))
	}
	if err := rc.Validate(); err != nil {
		return nil, s.fail(err)
	}
	if s.poster == nil {
		return nil, s.fail(common.NewConfigurationError("no chat webhook configured"))
	}

	rc.Ingredients = common.CopyStrings(rc.Ingredients)
	rc.Steps = common.CopyStrings(rc.Steps)

	body, err := s.poster.Post(ctx, chatRequest{
		RecipeID: recipeID,
		Message:  message,
		Context:  rc,
		History:  cleanHistory(history),
	})
	if err != nil {
		if ce, ok := common.AsCustomError(err); ok && ce.Code == common.ErrCodeUpstreamTransport && ce.Status != http.StatusGatewayTimeout {
			err = ce.WithStatus(http.StatusBadGateway)
		}
		return nil, s.fail(err)
	}

	var payload any
	if err := common.ParseJSONBytes(body, &payload); err != nil {
		return nil, s.fail(common.NewUpstreamFormatError(invalidReplyMessage, err).WithStatus(http.StatusBadGateway))
	}

	// 沒有回覆文字的物件仍原樣轉回，其他形狀必須帶有文字
	reply, raw := extractReply(payload)
	if reply == "" && raw == nil {
		return nil, s.fail(common.NewUpstreamFormatError(invalidReplyMessage, nil).WithStatus(http.StatusBadGateway))
	}

	metrics.ObserveChat("ok")
	return &common.ChatReply{Reply: reply, Raw: raw}, nil
}

func (s *ChatService) fail(err error) error {
	kind := common.KindOf(err)
	metrics.ObserveChat(kind)
	fields := append([]zap.Field{zap.String("kind", kind), zap.Error(err)}, common.UpstreamFields(err)...)
	common.LogWarn("食譜對話失敗", fields...)
	return err
}

// cleanHistory 只保留 user/assistant 且有內容的訊息
func cleanHistory(history []common.ChatMessage) []common.ChatMessage {
	out := make([]common.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role != common.RoleUser && m.Role != common.RoleAssistant {
			continue
		}
		if common.IsBlank(m.Content) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// extractReply 從物件、陣列第一個元素或字串取出回覆文字
func extractReply(payload any) (string, map[string]any) {
	switch v := payload.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", nil
		}
		return s, map[string]any{"reply": s}
	case map[string]any:
		for _, k := range replyFields {
			if s, ok := v[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), v
			}
		}
		return "", v
	case []any:
		if len(v) == 0 {
			return "", nil
		}
		return extractReply(v[0])
	}
	return "", nil
}
