package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultAddr, cfg.Server.Addr)
	require.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, DefaultPoemLLM, cfg.Gemini.Model)
	require.Equal(t, DefaultModel, cfg.OpenAI.Model)
	require.Equal(t, "text", cfg.Log.Format)
	require.Equal(t, time.Minute, cfg.Redis.Window)
	require.Empty(t, cfg.State.Table)
	require.Equal(t, DefaultURL, cfg.Client.URL)
	require.Equal(t, 10, cfg.Chat.MaxTurns)
}

func TestLoad_LambdaEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PARAM_PREFIX", "/toolbox/prod")
	t.Setenv("MAX_CONTEXT_ITEMS", "8")
	t.Setenv("MAX_QUESTION_LENGTH", "300")
	t.Setenv("MAX_CONVERSATION_TURNS", "25")
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/toolbox/prod", cfg.ParamPrefix)
	require.Equal(t, 8, cfg.Chat.MaxContext)
	require.Equal(t, 300, cfg.Chat.MaxQuestionLen)
	require.Equal(t, 25, cfg.Chat.MaxTurns)
	require.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model)
	require.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: 127.0.0.1:9000
  sampling: true
gemini:
  model: gemini-2.0-flash
log:
  level: debug
`), 0o600))

	t.Setenv("TOOLBOX_LOG_LEVEL", "warn")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("STATE_TABLE", "toolbox-state")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.True(t, cfg.Server.Sampling)
	require.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "g-key", cfg.Gemini.APIKey)
	require.Equal(t, "o-key", cfg.OpenAI.APIKey)
	require.Equal(t, "toolbox-state", cfg.State.Table)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{Log: LogConfig{Format: "json"}, Server: ServerConfig{Addr: ":8000"}}
	require.NoError(t, base.Validate())

	bad := base
	bad.Log.Format = "xml"
	require.ErrorContains(t, bad.Validate(), "log.format")

	bad = base
	bad.Server.Addr = " "
	require.ErrorContains(t, bad.Validate(), "server.addr")

	bad = base
	bad.Redis = RedisConfig{Addr: "localhost:6379"}
	require.ErrorContains(t, bad.Validate(), "redis.limit")
}
