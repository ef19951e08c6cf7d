package recipe

import (
	"context"
	"fmt"
	"time"

	"recipe-ai-gateway/internal/infrastructure/metrics"
	"recipe-ai-gateway/internal/pkg/common"

	"go.uber.org/zap"
)

const defaultFanoutTimeout = 5 * time.Second

// RecipeStore 食譜保存介面
type RecipeStore interface {
	InsertRecipes(ctx context.Context, records []common.RecipeRecord) error
}

// Fanout 盡力保存生成結果。失敗只記錄警告，不影響呼叫端，也不重試。
type Fanout struct {
	store   RecipeStore
	timeout time.Duration
}

// NewFanout store 為 nil 時 Persist 不做任何事
func NewFanout(store RecipeStore, timeout time.Duration) *Fanout {
	if timeout <= 0 {
		timeout = defaultFanoutTimeout
	}
	return &Fanout{store: store, timeout: timeout}
}

// Enabled 是否有設定保存
func (f *Fanout) Enabled() bool {
	return f != nil && f.store != nil
}

// Persist 以 source=AI 保存草稿的副本。不受請求取消影響，但有自己的逾時。
func (f *Fanout) Persist(ctx context.Context, userID string, drafts []common.RecipeDraft) {
	if !f.Enabled() || common.IsBlank(userID) || len(drafts) == 0 {
		return
	}

	now := time.Now().UTC()
	records := make([]common.RecipeRecord, len(drafts))
	for i, d := range common.CloneDrafts(drafts) {
		records[i] = common.RecipeRecord{
			RecipeDraft: d,
			ID:          common.GenerateUUID(),
			UserID:      userID,
			Source:      common.SourceAI,
			CreatedAt:   now,
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	if err := f.insert(ctx, records); err != nil {
		metrics.IncFanoutFailure()
		common.LogWarn("食譜保存失敗",
			zap.String("user_id", userID),
			zap.Int("count", len(records)),
			zap.Error(err),
		)
		return
	}

	common.LogDebug("食譜已保存",
		zap.String("user_id", userID),
		zap.Int("count", len(records)),
	)
}

func (f *Fanout) insert(ctx context.Context, records []common.RecipeRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during insert: %v", r)
		}
	}()
	return f.store.InsertRecipes(ctx, records)
}
