package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variables read by the helper and written by the setup wizard.
const (
	EnvLocalAIKey         = "LOCAL_AI_API_KEY"
	EnvLocalAIBaseURL     = "LOCAL_AI_BASE_URL"
	EnvLocalAIModel       = "LOCAL_AI_MODEL"
	EnvHuggingFaceKey     = "HUGGING_FACE_API_KEY"
	EnvHuggingFaceModel   = "HUGGING_FACE_MODEL"
	EnvHuggingFaceBaseURL = "HUGGING_FACE_BASE_URL"
	EnvMaxTokens          = "MYCODEHELPER_MAX_TOKENS"
	EnvTemperature        = "MYCODEHELPER_TEMPERATURE"
	EnvDefaultProvider    = "MYCODEHELPER_DEFAULT_PROVIDER"
	EnvStreaming          = "MYCODEHELPER_STREAMING"
	EnvOutputFormat       = "MYCODEHELPER_OUTPUT_FORMAT"
	EnvContextWindow      = "MYCODEHELPER_CONTEXT_WINDOW"
	EnvLogLevel           = "MYCODEHELPER_LOG_LEVEL"
)

// Provider identifiers as stored in MYCODEHELPER_DEFAULT_PROVIDER.
const (
	ProviderLocalAI     = "local-ai-api-key"
	ProviderHuggingFace = "hugging-face-api-key"
)

// Defaults applied when neither the environment nor a config file sets a value.
const (
	DefaultLocalAIKey         = "local-key"
	DefaultLocalAIBaseURL     = "http://localhost:8080"
	DefaultLocalAIModel       = "llama-3.1-8b"
	DefaultHuggingFaceModel   = "microsoft/DialoGPT-large"
	DefaultHuggingFaceBaseURL = "https://api-inference.huggingface.co/models"
	DefaultMaxTokens          = 8192
	DefaultTemperature        = 0.7
	DefaultContextWindow      = 100000
	DefaultOutputFormat       = "text"
	DefaultLogLevel           = "warn"
)

// Output formats accepted by OutputFormat.
var OutputFormats = []string{"text", "markdown", "json", "yaml"}

// LocalAIConfig describes an OpenAI-compatible inference server.
type LocalAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// HuggingFaceConfig describes the hosted inference API.
type HuggingFaceConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config holds all runtime configuration for the helper.
type Config struct {
	LocalAI     LocalAIConfig
	HuggingFace HuggingFaceConfig

	MaxTokens       int
	Temperature     float64
	DefaultProvider string
	Streaming       bool
	OutputFormat    string
	ContextWindow   int
	ProjectRoot     string

	Verbose  bool
	LogLevel string
}

// DefaultConfig returns a baseline configuration without side effects.
func DefaultConfig() Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return Config{
		LocalAI: LocalAIConfig{
			APIKey:  DefaultLocalAIKey,
			BaseURL: DefaultLocalAIBaseURL,
			Model:   DefaultLocalAIModel,
		},
		HuggingFace: HuggingFaceConfig{
			Model:   DefaultHuggingFaceModel,
			BaseURL: DefaultHuggingFaceBaseURL,
		},
		MaxTokens:       DefaultMaxTokens,
		Temperature:     DefaultTemperature,
		DefaultProvider: ProviderLocalAI,
		Streaming:       true,
		OutputFormat:    DefaultOutputFormat,
		ContextWindow:   DefaultContextWindow,
		ProjectRoot:     wd,
		LogLevel:        DefaultLogLevel,
	}
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(cfg Config) Config {
	cfg.LocalAI.APIKey = strings.TrimSpace(cfg.LocalAI.APIKey)
	cfg.LocalAI.BaseURL = strings.TrimSpace(cfg.LocalAI.BaseURL)
	cfg.LocalAI.Model = strings.TrimSpace(cfg.LocalAI.Model)
	cfg.HuggingFace.APIKey = strings.TrimSpace(cfg.HuggingFace.APIKey)
	cfg.HuggingFace.Model = strings.TrimSpace(cfg.HuggingFace.Model)
	cfg.HuggingFace.BaseURL = strings.TrimSpace(cfg.HuggingFace.BaseURL)
	cfg.DefaultProvider = strings.TrimSpace(cfg.DefaultProvider)
	cfg.ProjectRoot = strings.TrimSpace(cfg.ProjectRoot)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if cfg.LocalAI.BaseURL == "" {
		cfg.LocalAI.BaseURL = DefaultLocalAIBaseURL
	}
	if cfg.LocalAI.Model == "" {
		cfg.LocalAI.Model = DefaultLocalAIModel
	}
	if cfg.HuggingFace.Model == "" {
		cfg.HuggingFace.Model = DefaultHuggingFaceModel
	}
	if cfg.HuggingFace.BaseURL == "" {
		cfg.HuggingFace.BaseURL = DefaultHuggingFaceBaseURL
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = ProviderLocalAI
	}
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = "."
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 1
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = 0
	}
	if cfg.Temperature > 2 {
		cfg.Temperature = 2
	}

	format := strings.ToLower(strings.TrimSpace(cfg.OutputFormat))
	cfg.OutputFormat = DefaultOutputFormat
	for _, f := range OutputFormats {
		if f == format {
			cfg.OutputFormat = f
			break
		}
	}
	return cfg
}

// LoadOptions controls where Load reads configuration from.
type LoadOptions struct {
	// EnvFiles are loaded into the process environment without overriding
	// variables that are already set. Missing files are ignored.
	EnvFiles []string
	// ConfigFile is a path to a JSON, YAML or TOML file, or an inline JSON object.
	ConfigFile string
}

// bindings maps viper keys to environment variables and defaults.
var bindings = []struct {
	key string
	env string
	def any
}{
	{"local_ai.api_key", EnvLocalAIKey, DefaultLocalAIKey},
	{"local_ai.base_url", EnvLocalAIBaseURL, DefaultLocalAIBaseURL},
	{"local_ai.model", EnvLocalAIModel, DefaultLocalAIModel},
	{"hugging_face.api_key", EnvHuggingFaceKey, ""},
	{"hugging_face.model", EnvHuggingFaceModel, DefaultHuggingFaceModel},
	{"hugging_face.base_url", EnvHuggingFaceBaseURL, DefaultHuggingFaceBaseURL},
	{"max_tokens", EnvMaxTokens, strconv.Itoa(DefaultMaxTokens)},
	{"temperature", EnvTemperature, strconv.FormatFloat(DefaultTemperature, 'f', -1, 64)},
	{"default_provider", EnvDefaultProvider, ProviderLocalAI},
	{"streaming", EnvStreaming, "true"},
	{"output_format", EnvOutputFormat, DefaultOutputFormat},
	{"context_window", EnvContextWindow, strconv.Itoa(DefaultContextWindow)},
	{"log_level", EnvLogLevel, DefaultLogLevel},
}

// Load resolves configuration from defaults, an optional config file,
// .env files and the process environment, in increasing precedence.
func Load(opts LoadOptions) (Config, error) {
	for _, path := range opts.EnvFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", b.env, err)
		}
	}

	if src := strings.TrimSpace(opts.ConfigFile); src != "" {
		if strings.HasPrefix(src, "{") {
			v.SetConfigType("json")
			if err := v.ReadConfig(strings.NewReader(src)); err != nil {
				return Config{}, fmt.Errorf("parse inline config: %w", err)
			}
		} else {
			v.SetConfigFile(src)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config file %s: %w", src, err)
			}
		}
	}

	cfg := DefaultConfig()
	cfg.LocalAI = LocalAIConfig{
		APIKey:  v.GetString("local_ai.api_key"),
		BaseURL: v.GetString("local_ai.base_url"),
		Model:   v.GetString("local_ai.model"),
	}
	cfg.HuggingFace = HuggingFaceConfig{
		APIKey:  v.GetString("hugging_face.api_key"),
		Model:   v.GetString("hugging_face.model"),
		BaseURL: v.GetString("hugging_face.base_url"),
	}
	cfg.DefaultProvider = v.GetString("default_provider")
	cfg.OutputFormat = v.GetString("output_format")
	cfg.LogLevel = v.GetString("log_level")
	cfg.Streaming = strings.TrimSpace(v.GetString("streaming")) != "false"

	var err error
	if cfg.MaxTokens, err = parseInt(v, "max_tokens", EnvMaxTokens); err != nil {
		return Config{}, err
	}
	if cfg.ContextWindow, err = parseInt(v, "context_window", EnvContextWindow); err != nil {
		return Config{}, err
	}
	raw := strings.TrimSpace(v.GetString("temperature"))
	if cfg.Temperature, err = strconv.ParseFloat(raw, 64); err != nil {
		return Config{}, fmt.Errorf("invalid %s %q: %w", EnvTemperature, raw, err)
	}

	return Normalize(cfg), nil
}

func parseInt(v *viper.Viper, key, env string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", env, raw, err)
	}
	return n, nil
}
