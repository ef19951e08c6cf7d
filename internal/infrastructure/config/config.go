package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Gateway     GatewayConfig   `mapstructure:"gateway"`
	Webhook     WebhookConfig   `mapstructure:"webhook"`
	Upstream    UpstreamConfig  `mapstructure:"upstream"`
	Store       StoreConfig     `mapstructure:"store"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window" validate:"gte=0"`
	LogLevel    string          `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error fatal"`
	LogFile     string          `mapstructure:"log_file"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
}

// GatewayConfig OpenAI 相容閘道設定，OpenAI 憑證優先
type GatewayConfig struct {
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key"`
	OpenAIURL        string `mapstructure:"openai_url" validate:"omitempty,url"`
	OpenRouterURL    string `mapstructure:"openrouter_url" validate:"omitempty,url"`
	Model            string `mapstructure:"model"`
}

// WebhookConfig 工作流程 webhook 設定
type WebhookConfig struct {
	GenerateURL string `mapstructure:"generate_url" validate:"omitempty,url"`
	ChatURL     string `mapstructure:"chat_url" validate:"omitempty,url"`
}

// UpstreamConfig 上游請求設定
type UpstreamConfig struct {
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=0,lte=5"`
	RetryWait  time.Duration `mapstructure:"retry_wait" validate:"gte=0"`
}

// StoreConfig 食譜保存設定
type StoreConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Driver        string        `mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DSN           string        `mapstructure:"dsn"`
	FanoutTimeout time.Duration `mapstructure:"fanout_timeout" validate:"gt=0"`
}

// RedisConfig Redis 設定（請求去重）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests" validate:"gte=0"`
	Window   time.Duration `mapstructure:"window" validate:"gte=0"`
}

// HasGatewayCredential 是否設定了任一閘道憑證
func (c *Config) HasGatewayCredential() bool {
	return strings.TrimSpace(c.Gateway.OpenAIAPIKey) != "" || strings.TrimSpace(c.Gateway.OpenRouterAPIKey) != ""
}

// HasWebhook 是否設定了生成 webhook
func (c *Config) HasWebhook() bool {
	return strings.TrimSpace(c.Webhook.GenerateURL) != ""
}

// LoadConfig 載入設定，.env 不存在時只讀環境變數
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（可選）
	_ = godotenv.Load()

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"gateway.openai_api_key":     "OPENAI_API_KEY",
		"gateway.openrouter_api_key": "OPENROUTER_API_KEY",
		"gateway.openai_url":         "OPENAI_API_URL",
		"gateway.openrouter_url":     "OPENROUTER_API_URL",
		"gateway.model":              "GATEWAY_MODEL",
		"webhook.generate_url":       "WEBHOOK_GENERATE_URL",
		"webhook.chat_url":           "WEBHOOK_CHAT_URL",
		"upstream.timeout":           "UPSTREAM_TIMEOUT",
		"upstream.max_retries":       "UPSTREAM_MAX_RETRIES",
		"upstream.retry_wait":        "UPSTREAM_RETRY_WAIT",
		"store.enabled":              "STORE_ENABLED",
		"store.driver":               "STORE_DRIVER",
		"store.dsn":                  "STORE_DSN",
		"store.fanout_timeout":       "STORE_FANOUT_TIMEOUT",
		"redis.enabled":              "REDIS_ENABLED",
		"redis.addr":                 "REDIS_ADDR",
		"redis.password":             "REDIS_PASSWORD",
		"rate_limit.enabled":         "RATE_LIMIT_ENABLED",
		"rate_limit.requests":        "RATE_LIMIT_REQUESTS",
		"rate_limit.window":          "RATE_LIMIT_WINDOW",
		"server.port":                "PORT",
		"dedup_window":               "DEDUP_WINDOW",
		"log_level":                  "LOG_LEVEL",
		"log_file":                   "LOG_FILE",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fmt.Println("Loading configuration",
		"openai_api_key:", MaskAPIKey(config.Gateway.OpenAIAPIKey),
		"openrouter_api_key:", MaskAPIKey(config.Gateway.OpenRouterAPIKey),
		"webhook:", config.HasWebhook(),
	)

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-ai-gateway")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 上游設定
	v.SetDefault("gateway.openai_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("gateway.openrouter_url", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("webhook.chat_url", DefaultChatWebhookURL)
	v.SetDefault("upstream.timeout", "60s")
	v.SetDefault("upstream.max_retries", 0)
	v.SetDefault("upstream.retry_wait", "500ms")

	// 保存設定
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "data/recipes.db")
	v.SetDefault("store.fanout_timeout", "5s")

	// Redis 設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "logs/app.log")
}

// DefaultChatWebhookURL 未設定 WEBHOOK_CHAT_URL 時使用
const DefaultChatWebhookURL = "http://localhost:5678/webhook/recipe-chat"

var validate = validator.New()

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return err
	}
	if config.Store.Enabled && strings.TrimSpace(config.Store.DSN) == "" {
		return fmt.Errorf("store dsn is required when store is enabled")
	}
	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}
	return nil
}
