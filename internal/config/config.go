package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by CINIME_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
	ProviderMock   = "mock"
)

// Grounding tool flavours accepted by CINIME_SEARCH_TOOL.
const (
	SearchToolSearch    = "search"
	SearchToolRetrieval = "retrieval"
)

const defaultSecretsFile = ".secrets/secrets.yaml"

// ErrMissingCredential means the selected provider has no API key in the
// environment nor in the secrets store.
var ErrMissingCredential = errors.New("api credential not found")

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Session SessionConfig
	Log     LogConfig
}

// Load 从环境变量加载配置，密钥缺失时回退到 secrets 文件。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	secrets, err := loadSecrets(getEnvOrDefault("CINIME_SECRETS_FILE", defaultSecretsFile))
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(secrets)
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Session: session, Log: loadLogConfig()}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
	// AllowedOrigins 为空时 CORS 对所有来源开放（不带凭证）。
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := parseListEnv("CORS_ALLOWED_ORIGINS")

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider        string
	SearchGrounding bool
	MockListings    bool
	Gemini          GeminiConfig
	Ark             ArkConfig
}

// GeminiConfig holds the Gemini API settings.
type GeminiConfig struct {
	APIKey     string
	Model      string
	SearchTool string
}

// ArkConfig holds the Volcengine Ark settings.
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY (or ARK_ACCESS_KEY/ARK_SECRET_KEY) and ARK_MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig(secrets map[string]string) (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("CINIME_PROVIDER", ProviderGemini))
	switch provider {
	case ProviderGemini, ProviderArk, ProviderMock:
	default:
		return AIConfig{}, fmt.Errorf("invalid CINIME_PROVIDER value %q", provider)
	}

	grounding, err := parseBoolEnv("CINIME_SEARCH_GROUNDING", true)
	if err != nil {
		return AIConfig{}, err
	}

	mockListings, err := parseBoolEnv("CINIME_MOCK_LISTINGS", false)
	if err != nil {
		return AIConfig{}, err
	}

	searchTool := strings.ToLower(getEnvOrDefault("CINIME_SEARCH_TOOL", SearchToolSearch))
	if searchTool != SearchToolSearch && searchTool != SearchToolRetrieval {
		return AIConfig{}, fmt.Errorf("invalid CINIME_SEARCH_TOOL value %q", searchTool)
	}

	arkCfg, err := loadArkConfig(secrets)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:        provider,
		SearchGrounding: grounding,
		MockListings:    mockListings,
		Gemini: GeminiConfig{
			APIKey:     lookupCredential("GOOGLE_API_KEY", secrets),
			Model:      getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
			SearchTool: searchTool,
		},
		Ark: arkCfg,
	}

	switch provider {
	case ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return AIConfig{}, fmt.Errorf("%w: set GOOGLE_API_KEY in the environment or the secrets file", ErrMissingCredential)
		}
	case ProviderArk:
		if cfg.Ark.APIKey == "" && (cfg.Ark.AccessKey == "" || cfg.Ark.SecretKey == "") {
			return AIConfig{}, fmt.Errorf("%w: set ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY in the environment or the secrets file", ErrMissingCredential)
		}
		if cfg.Ark.Model == "" {
			return AIConfig{}, errors.New("ARK_MODEL is required for the ark provider")
		}
	}

	return cfg, nil
}

func loadArkConfig(secrets map[string]string) (ArkConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return ArkConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return ArkConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return ArkConfig{}, err
	}

	return ArkConfig{
		APIKey:      lookupCredential("ARK_API_KEY", secrets),
		AccessKey:   lookupCredential("ARK_ACCESS_KEY", secrets),
		SecretKey:   lookupCredential("ARK_SECRET_KEY", secrets),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SessionConfig 描述会话生命周期。
type SessionConfig struct {
	TTL time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	raw := strings.TrimSpace(os.Getenv("CINIME_SESSION_TTL"))
	if raw == "" {
		return SessionConfig{TTL: time.Hour}, nil
	}

	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("invalid CINIME_SESSION_TTL value %q: %w", raw, err)
	}
	if ttl <= 0 {
		return SessionConfig{}, fmt.Errorf("CINIME_SESSION_TTL must be positive, got %s", ttl)
	}
	return SessionConfig{TTL: ttl}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Production bool
	FilePath   string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Production: strings.EqualFold(os.Getenv("APP_ENV"), "production"),
		FilePath:   strings.TrimSpace(os.Getenv("LOG_FILE")),
	}
}

// loadSecrets reads the flat key/value secrets file. A missing file is an
// empty store.
func loadSecrets(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets file %s: %w", path, err)
	}

	secrets := map[string]string{}
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parse secrets file %s: %w", path, err)
	}
	return secrets, nil
}

// lookupCredential checks the environment first and the secrets store second.
func lookupCredential(key string, secrets map[string]string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(secrets[key])
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseListEnv splits a comma separated value, dropping empty items.
func parseListEnv(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
