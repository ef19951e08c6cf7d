package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"recipe-ai-gateway/internal/pkg/common"
)

// DedupStore 記錄請求指紋，window 內第一次出現返回 true
type DedupStore interface {
	FirstSeen(ctx context.Context, fingerprint string, window time.Duration) (bool, error)
}

// MemoryDedupStore 單機記憶體實作
type MemoryDedupStore struct {
	mu       sync.Mutex
	requests map[string]time.Time
	lastGC   time.Time
}

// NewMemoryDedupStore 創建記憶體去重存儲
func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{requests: make(map[string]time.Time)}
}

// FirstSeen 實作 DedupStore
func (s *MemoryDedupStore) FirstSeen(_ context.Context, fingerprint string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastGC) > 10*window {
		for k, t := range s.requests {
			if now.Sub(t) > window {
				delete(s.requests, k)
			}
		}
		s.lastGC = now
	}

	if last, ok := s.requests[fingerprint]; ok && now.Sub(last) <= window {
		return false, nil
	}
	s.requests[fingerprint] = now
	return true, nil
}

// RedisDedupStore 多實例共用的 Redis 實作
type RedisDedupStore struct {
	client *redis.Client
	prefix string
}

// NewRedisDedupStore 創建 Redis 去重存儲
func NewRedisDedupStore(client *redis.Client) *RedisDedupStore {
	return &RedisDedupStore{client: client, prefix: "recipe-ai:dedup:"}
}

// FirstSeen 實作 DedupStore，使用 SETNX 搭配過期時間
func (s *RedisDedupStore) FirstSeen(ctx context.Context, fingerprint string, window time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+fingerprint, 1, window).Result()
}

// Deduplication 請求去重中間件，window 內相同路徑與內容的 POST 請求返回 429
func Deduplication(store DedupStore, window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		window = time.Second
	}
	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		// 計算請求體哈希
		bodyHash := ""
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.Next()
				return
			}
			hash := sha256.Sum256(body)
			bodyHash = hex.EncodeToString(hash[:])

			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		// 生成請求指紋（含使用者，避免不同使用者互相影響）
		fingerprint := c.Request.Method + ":" + c.Request.URL.Path + ":" + c.GetString(UserIDKey)
		if bodyHash != "" {
			fingerprint += ":" + bodyHash
		}

		first, err := store.FirstSeen(c.Request.Context(), fingerprint, window)
		if err != nil {
			// 去重失敗時放行
			common.LogWarn("Deduplication store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !first {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Error: "Request too frequent",
				Code:  common.ErrCodeTooManyRequests,
			})
			return
		}

		c.Next()
	}
}
