package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`             // 錯誤信息
	Code    string `json:"code"`              // 錯誤代碼
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼

	// 上游回應（僅 UPSTREAM_TRANSPORT_ERROR 使用）
	UpstreamStatus int
	UpstreamBody   string
}

// Error 上游錯誤會附上截斷後的回應內容
func (e *CustomError) Error() string {
	msg := e.Message
	if e.UpstreamBody != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.UpstreamBody)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap 返回原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 錯誤種類
const (
	ErrCodeConfiguration     = "CONFIGURATION_ERROR"      // 500
	ErrCodeValidation        = "VALIDATION_ERROR"         // 400
	ErrCodeUpstreamTransport = "UPSTREAM_TRANSPORT_ERROR" // 上游狀態 / 502
	ErrCodeUpstreamFormat    = "UPSTREAM_FORMAT_ERROR"    // 500 / 502
	ErrCodeEmptyResult       = "EMPTY_RESULT"             // 500

	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"   // 504
	ErrCodeInternalError   = "INTERNAL_ERROR"    // 500
)

// maxUpstreamBody 錯誤中保留的上游回應長度
const maxUpstreamBody = 512

// NewConfigurationError 沒有可用的上游設定
func NewConfigurationError(message string) *CustomError {
	return NewError(ErrCodeConfiguration, message, http.StatusInternalServerError, nil)
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) *CustomError {
	return NewError(ErrCodeValidation, message, http.StatusBadRequest, nil)
}

// NewUpstreamTransportError 上游非 2xx 或網路錯誤。status 為 0 代表沒有收到回應。
func NewUpstreamTransportError(upstreamStatus int, body string, err error) *CustomError {
	status := http.StatusBadGateway
	message := "upstream request failed"
	switch {
	case upstreamStatus >= 400:
		status = upstreamStatus
		message = fmt.Sprintf("upstream returned status %d", upstreamStatus)
	case upstreamStatus > 0:
		message = fmt.Sprintf("upstream returned status %d", upstreamStatus)
	case isTimeout(err):
		status = http.StatusGatewayTimeout
		message = "upstream request timed out"
	}
	e := NewError(ErrCodeUpstreamTransport, message, status, err)
	e.UpstreamStatus = upstreamStatus
	e.UpstreamBody = Truncate(body, maxUpstreamBody)
	return e
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// NewUpstreamFormatError 上游回應無法解讀
func NewUpstreamFormatError(message string, err error) *CustomError {
	return NewError(ErrCodeUpstreamFormat, message, http.StatusInternalServerError, err)
}

// NewEmptyResultError 上游回應可解讀但沒有任何有效食譜
func NewEmptyResultError(message string) *CustomError {
	return NewError(ErrCodeEmptyResult, message, http.StatusInternalServerError, nil)
}

// WithStatus 複製錯誤並改寫 HTTP 狀態碼
func (e *CustomError) WithStatus(status int) *CustomError {
	cp := *e
	cp.Status = status
	return &cp
}

// AsCustomError 從錯誤鏈中取出 CustomError
func AsCustomError(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf 返回錯誤種類，未分類的錯誤視為 INTERNAL_ERROR
func KindOf(err error) string {
	if ce, ok := AsCustomError(err); ok {
		return ce.Code
	}
	return ErrCodeInternalError
}

// StatusOf 返回錯誤對應的 HTTP 狀態碼
func StatusOf(err error) int {
	if ce, ok := AsCustomError(err); ok && ce.Status > 0 {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// UpstreamFields 上游錯誤的狀態碼與回應內容，其他錯誤返回 nil
func UpstreamFields(err error) []zap.Field {
	ce, ok := AsCustomError(err)
	if !ok || ce.Code != ErrCodeUpstreamTransport {
		return nil
	}
	return []zap.Field{
		zap.Int("upstream_status", ce.UpstreamStatus),
		zap.String("upstream_body", ce.UpstreamBody),
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	return KindOf(err) == ErrCodeValidation
}

// ErrInternalError 未分類錯誤對外的統一回應
var ErrInternalError = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
