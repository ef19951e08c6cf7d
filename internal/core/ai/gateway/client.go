// Package gateway 實作 OpenAI 相容的 chat completion 上游
package gateway

import (
	"context"
	"fmt"
	"strings"

	"recipe-ai-gateway/internal/core/ai/provider"
	"recipe-ai-gateway/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	// OpenAIURL OpenAI chat completion 端點
	OpenAIURL = "https://api.openai.com/v1/chat/completions"
	// OpenRouterURL OpenRouter chat completion 端點
	OpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

	OpenAIModel     = "gpt-4o-mini"
	OpenRouterModel = "openai/gpt-4o-mini"

	temperature = 0.7
)

const systemPrompt = `You are a professional chef. Based on the ingredients the user has, suggest 3 to 4 recipes.
Respond with a JSON array only, no prose and no Markdown.
Each element must be an object with these fields:
"title" (string), "description" (string, one or two sentences),
"ingredients" (array of strings with quantities), "steps" (array of strings, in order).`

// Credentials 閘道憑證，OpenAI 優先於 OpenRouter
type Credentials struct {
	OpenAIKey     string
	OpenRouterKey string
	OpenAIURL     string
	OpenRouterURL string
	Model         string
}

// Client 閘道客戶端
type Client struct {
	http  *resty.Client
	url   string
	model string
	label string
}

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient 依憑證建立客戶端，沒有憑證時返回 CONFIGURATION_ERROR
func NewClient(creds Credentials, cfg provider.Config) (*Client, error) {
	var key, url, model, label string
	switch {
	case !common.IsBlank(creds.OpenAIKey):
		key, url, model, label = creds.OpenAIKey, creds.OpenAIURL, OpenAIModel, "openai"
		if url == "" {
			url = OpenAIURL
		}
	case !common.IsBlank(creds.OpenRouterKey):
		key, url, model, label = creds.OpenRouterKey, creds.OpenRouterURL, OpenRouterModel, "openrouter"
		if url == "" {
			url = OpenRouterURL
		}
	default:
		return nil, common.NewConfigurationError("no gateway credential configured")
	}
	if creds.Model != "" {
		model = creds.Model
	}

	client := provider.NewHTTPClient(cfg).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", strings.TrimSpace(key)))
	if label == "openrouter" {
		client.SetHeader("X-Title", "Recipe AI Gateway")
	}

	return &Client{http: client, url: url, model: model, label: label}, nil
}

// Name 實作 provider.Provider
func (c *Client) Name() string {
	return provider.NameGateway
}

// Model 目前使用的模型
func (c *Client) Model() string {
	return c.model
}

// FetchRecipes 實作 provider.Provider，返回 choices[0].message.content 原始字串
func (c *Client) FetchRecipes(ctx context.Context, ingredientsText string) (any, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Ingredients I have: %s", strings.TrimSpace(ingredientsText))},
		},
		Temperature: temperature,
	}

	common.LogDebug("發送閘道請求",
		zap.String("vendor", c.label),
		zap.String("model", c.model),
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.url)
	if err := provider.CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var result chatResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, common.NewUpstreamFormatError("failed to parse gateway response", err)
	}
	if len(result.Choices) == 0 {
		return nil, common.NewUpstreamFormatError("no choices in gateway response", nil)
	}

	return result.Choices[0].Message.Content, nil
}
