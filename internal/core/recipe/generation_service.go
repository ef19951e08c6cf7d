package recipe

import (
	"context"
	"strings"

	"recipe-ai-gateway/internal/core/ai/normalize"
	"recipe-ai-gateway/internal/infrastructure/metrics"
	"recipe-ai-gateway/internal/pkg/common"

	"go.uber.org/zap"
)

// RecipeFetcher 取得上游原始回應
type RecipeFetcher interface {
	FetchRecipes(ctx context.Context, ingredientsText string) (any, error)
}

// GenerationService 食譜生成服務
type GenerationService struct {
	fetcher RecipeFetcher
	fanout  *Fanout
}

// NewGenerationService 創建食譜生成服務，fanout 可為 nil
func NewGenerationService(fetcher RecipeFetcher, fanout *Fanout) *GenerationService {
	return &GenerationService{
		fetcher: fetcher,
		fanout:  fanout,
	}
}

// Generate 依食材文字生成食譜。成功時列表非空；
// 有使用者時會在返回前盡力保存，保存失敗不影響結果。
func (s *GenerationService) Generate(ctx context.Context, req common.GenerationRequest) ([]common.RecipeDraft, error) {
	ingredients := strings.TrimSpace(req.IngredientsText)
	if ingredients == "" {
		return nil, common.NewValidationError("ingredients are required")
	}

	if s.fetcher == nil {
		return nil, s.fail(common.NewConfigurationError("no AI provider configured"))
	}

	payload, err := s.fetcher.FetchRecipes(ctx, ingredients)
	if err != nil {
		return nil, s.fail(err)
	}

	drafts, err := normalize.Normalize(payload)
	if err != nil {
		return nil, s.fail(err)
	}

	common.LogInfo("食譜生成成功",
		zap.Int("count", len(drafts)),
		zap.Bool("has_user", req.RequestingUserID != ""),
	)
	metrics.ObserveGeneration(len(drafts), "")

	if req.RequestingUserID != "" {
		s.fanout.Persist(ctx, req.RequestingUserID, drafts)
	}

	return drafts, nil
}

func (s *GenerationService) fail(err error) error {
	kind := common.KindOf(err)
	metrics.ObserveGeneration(0, kind)
	fields := append([]zap.Field{zap.String("kind", kind), zap.Error(err)}, common.UpstreamFields(err)...)
	common.LogWarn("食譜生成失敗", fields...)
	return err
}
