package service

import (
	"context"
	"time"

	"recipe-ai-gateway/internal/core/ai/gateway"
	"recipe-ai-gateway/internal/core/ai/provider"
	"recipe-ai-gateway/internal/core/ai/webhook"
	"recipe-ai-gateway/internal/infrastructure/config"
	"recipe-ai-gateway/internal/infrastructure/metrics"
	"recipe-ai-gateway/internal/pkg/common"

	"go.uber.org/zap"
)

// ProviderConfig 由應用設定轉為上游 HTTP 設定
func ProviderConfig(cfg *config.Config) provider.Config {
	return provider.Config{
		Timeout:    cfg.Upstream.Timeout,
		MaxRetries: cfg.Upstream.MaxRetries,
		RetryWait:  cfg.Upstream.RetryWait,
	}
}

// SelectProvider 依設定選擇上游：閘道憑證優先，其次 webhook，都沒有時返回 CONFIGURATION_ERROR
func SelectProvider(cfg *config.Config) (provider.Provider, error) {
	if cfg == nil {
		return nil, common.NewConfigurationError("missing configuration")
	}

	if cfg.HasGatewayCredential() {
		client, err := gateway.NewClient(gateway.Credentials{
			OpenAIKey:     cfg.Gateway.OpenAIAPIKey,
			OpenRouterKey: cfg.Gateway.OpenRouterAPIKey,
			OpenAIURL:     cfg.Gateway.OpenAIURL,
			OpenRouterURL: cfg.Gateway.OpenRouterURL,
			Model:         cfg.Gateway.Model,
		}, ProviderConfig(cfg))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	if cfg.HasWebhook() {
		client, err := webhook.NewClient(cfg.Webhook.GenerateURL, ProviderConfig(cfg))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	return nil, common.NewConfigurationError("no AI provider configured: set OPENAI_API_KEY, OPENROUTER_API_KEY or WEBHOOK_GENERATE_URL")
}

// Service AI 服務，包裝選定的上游並記錄日誌與指標
type Service struct {
	provider    provider.Provider
	selectError error
}

// NewService 創建 AI 服務。沒有可用上游時服務仍可建立，每次請求返回設定錯誤。
func NewService(cfg *config.Config) *Service {
	p, err := SelectProvider(cfg)
	if err != nil {
		common.LogWarn("沒有可用的 AI 上游", zap.Error(err))
		return &Service{selectError: err}
	}
	common.LogInfo("選定 AI 上游", zap.String("provider", p.Name()))
	return &Service{provider: p}
}

// NewServiceWithProvider 直接指定上游
func NewServiceWithProvider(p provider.Provider) *Service {
	if p == nil {
		return &Service{selectError: common.NewConfigurationError("no AI provider configured")}
	}
	return &Service{provider: p}
}

// ProviderName 目前上游名稱，未設定時為空字串
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Ready 是否有可用上游
func (s *Service) Ready() bool {
	return s.provider != nil
}

// FetchRecipes 向選定的上游請求食譜，返回未整理的回應
func (s *Service) FetchRecipes(ctx context.Context, ingredientsText string) (any, error) {
	if s.provider == nil {
		return nil, s.selectError
	}

	start := time.Now()
	payload, err := s.provider.FetchRecipes(ctx, ingredientsText)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = common.KindOf(err)
	}
	metrics.ObserveUpstream(s.provider.Name(), outcome, elapsed)
	common.LogUpstreamCall(s.provider.Name(), elapsed, err)

	return payload, err
}
