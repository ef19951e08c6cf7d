package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"recipe-ai-gateway/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultRetryWait = 500 * time.Millisecond
)

// NewHTTPClient 建立上游共用的 resty client。
// 重試只針對網路錯誤、429 與 5xx，次數由 cfg.MaxRetries 決定（預設 0）。
func NewHTTPClient(cfg Config) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}

	client := resty.New().
		SetTransport(otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone())).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(4 * wait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	client.OnError(func(req *resty.Request, err error) {
		common.LogDebug("上游連線錯誤",
			zap.String("url", req.URL),
			zap.Int("attempt", req.Attempt),
			zap.Error(err),
		)
	})

	return client
}

// CheckResponse 將 resty 結果轉為分類錯誤，2xx 返回 nil
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return common.NewUpstreamTransportError(0, "", err)
	}
	if !resp.IsSuccess() {
		return common.NewUpstreamTransportError(resp.StatusCode(), resp.String(), nil)
	}
	return nil
}
