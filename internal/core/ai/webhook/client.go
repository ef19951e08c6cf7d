// Package webhook 實作工作流程 webhook 上游（食譜生成與對話）
package webhook

import (
	"context"
	"strings"

	"recipe-ai-gateway/internal/core/ai/provider"
	"recipe-ai-gateway/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// modeIngredients 生成請求固定的模式
const modeIngredients = "ingredients"

// Client webhook 客戶端
type Client struct {
	http *resty.Client
	url  string
}

type generateRequest struct {
	Ingredients string `json:"ingredients"`
	Mode        string `json:"mode"`
}

// NewClient 建立 webhook 客戶端，url 為空時返回 CONFIGURATION_ERROR
func NewClient(url string, cfg provider.Config) (*Client, error) {
	if common.IsBlank(url) {
		return nil, common.NewConfigurationError("no webhook url configured")
	}
	return &Client{
		http: provider.NewHTTPClient(cfg),
		url:  strings.TrimSpace(url),
	}, nil
}

// Name 實作 provider.Provider
func (c *Client) Name() string {
	return provider.NameWebhook
}

// FetchRecipes 實作 provider.Provider。回應能解析為 JSON 時返回解析結果，否則返回原始字串。
func (c *Client) FetchRecipes(ctx context.Context, ingredientsText string) (any, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Ingredients: strings.TrimSpace(ingredientsText),
			Mode:        modeIngredients,
		}).
		Post(c.url)
	if err := provider.CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var payload any
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		common.LogDebug("webhook 回應不是 JSON，改以文字處理", zap.Int("bytes", len(resp.Body())))
		return resp.String(), nil
	}
	return payload, nil
}

// Post 發送任意 JSON 請求並返回原始回應內容，供對話代理使用
func (c *Client) Post(ctx context.Context, body any) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.url)
	if err := provider.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
