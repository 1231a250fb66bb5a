// Package config loads toolbox settings from defaults, an optional YAML file
// and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix      = "TOOLBOX"
	configName     = "toolbox"
	DefaultAddr    = "0.0.0.0:8000"
	DefaultURL     = "http://localhost:8000"
	DefaultModel   = "gpt-4o-mini"
	DefaultPoemLLM = "gemini-1.5-flash"
)

type Config struct {
	Log         LogConfig    `mapstructure:"log"`
	Server      ServerConfig `mapstructure:"server"`
	OpenAI      LLMConfig    `mapstructure:"openai"`
	Gemini      LLMConfig    `mapstructure:"gemini"`
	Chat        ChatConfig   `mapstructure:"chat"`
	State       StateConfig  `mapstructure:"state"`
	Redis       RedisConfig  `mapstructure:"redis"`
	Client      ClientConfig `mapstructure:"client"`
	Render      RenderConfig `mapstructure:"render"`
	ParamPrefix string       `mapstructure:"param_prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Sampling        bool          `mapstructure:"sampling"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LLMConfig points at one OpenAI-compatible endpoint.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type ChatConfig struct {
	System         string `mapstructure:"system"`
	Moderate       bool   `mapstructure:"moderate"`
	MaxContext     int    `mapstructure:"max_context"`
	MaxQuestionLen int    `mapstructure:"max_question_len"`
	MaxTurns       int    `mapstructure:"max_turns"`
}

// StateConfig selects DynamoDB persistence. An empty table keeps state in memory.
type StateConfig struct {
	Table string `mapstructure:"table"`
}

// RedisConfig enables the tool-call rate limiter when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Limit    int           `mapstructure:"limit"`
	Window   time.Duration `mapstructure:"window"`
}

type ClientConfig struct {
	URL       string `mapstructure:"url"`
	ServerCmd string `mapstructure:"server_cmd"`
}

type RenderConfig struct {
	Style string `mapstructure:"style"`
	Width int    `mapstructure:"width"`
}

// New returns a viper instance with defaults, the config file and the
// environment wired in. Callers may bind flags on it before calling Decode.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindWellKnownEnv(v); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}
	return v, nil
}

// Load is New followed by Decode.
func Load(path string) (Config, error) {
	v, err := New(path)
	if err != nil {
		return Config{}, err
	}
	return Decode(v)
}

func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("config: server.addr must not be empty")
	}
	if c.Redis.Addr != "" && (c.Redis.Limit <= 0 || c.Redis.Window <= 0) {
		return errors.New("config: redis.limit and redis.window must be positive when redis.addr is set")
	}
	return nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/llm-toolbox")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read: %w", err)
	}
	return nil
}

// bindWellKnownEnv maps the provider conventions onto config keys.
func bindWellKnownEnv(v *viper.Viper) error {
	binds := map[string][]string{
		"openai.api_key":        {"OPENAI_API_KEY"},
		"openai.model":          {"OPENAI_MODEL"},
		"gemini.api_key":        {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
		"gemini.model":          {"GEMINI_MODEL"},
		"chat.max_context":      {"MAX_CONTEXT_ITEMS"},
		"chat.max_question_len": {"MAX_QUESTION_LENGTH"},
		"chat.max_turns":        {"MAX_CONVERSATION_TURNS"},
		"state.table":           {"STATE_TABLE"},
		"param_prefix":          {"PARAM_PREFIX"},
		"redis.addr":            {"REDIS_ADDR"},
	}
	for key, envs := range binds {
		args := append([]string{key, envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.sampling", false)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", DefaultModel)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("gemini.model", DefaultPoemLLM)

	v.SetDefault("chat.system", "You are a helpful assistant.")
	v.SetDefault("chat.moderate", false)
	v.SetDefault("chat.max_context", 20)
	v.SetDefault("chat.max_question_len", 2000)
	v.SetDefault("chat.max_turns", 10)

	v.SetDefault("state.table", "")
	v.SetDefault("param_prefix", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.limit", 30)
	v.SetDefault("redis.window", "1m")

	v.SetDefault("client.url", DefaultURL)
	v.SetDefault("client.server_cmd", "")

	v.SetDefault("render.style", "auto")
	v.SetDefault("render.width", 80)
}
