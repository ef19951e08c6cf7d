package provider

import (
	"context"
	"time"
)

// 提供者名稱
const (
	NameGateway = "gateway"
	NameWebhook = "webhook"
)

// Message 表示與 AI 模型的對話消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider 定義食譜生成上游介面
type Provider interface {
	// Name 提供者名稱，用於日誌與指標
	Name() string

	// FetchRecipes 以食材文字請求食譜，返回尚未整理的回應內容（字串或已解析的 JSON）。
	// 非 2xx 與網路錯誤返回 UPSTREAM_TRANSPORT_ERROR。
	FetchRecipes(ctx context.Context, ingredientsText string) (any, error)
}

// Config 上游 HTTP 設定
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration
}
