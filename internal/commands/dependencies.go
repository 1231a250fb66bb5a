package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"

	"llm-toolbox/internal/config"
	"llm-toolbox/internal/integrations/openai"
	"llm-toolbox/internal/integrations/paramstore"
	"llm-toolbox/internal/repository"
	"llm-toolbox/internal/toolserver"
	"llm-toolbox/internal/usecase"
)

// Stores bundles the conversation store and the tool journal.
type Stores struct {
	Conversations usecase.ConversationStore
	Journal       usecase.Journal
}

// Dependencies holds the external collaborators of the commands. Tests swap
// the factories for fakes.
type Dependencies struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// NewCompleter builds a chat-completion client for one endpoint.
	// tokenName is the SSM parameter consulted when the config has no key.
	NewCompleter func(ctx context.Context, cfg config.Config, llm config.LLMConfig, tokenName string) (usecase.Completer, error)
	NewStores    func(ctx context.Context, cfg config.Config) (Stores, error)
	NewLimiter   func(cfg config.Config) (toolserver.Limiter, error)
}

func NewDependencies() *Dependencies {
	return &Dependencies{
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		NewCompleter: newCompleter,
		NewStores:    newStores,
		NewLimiter:   newLimiter,
	}
}

func newCompleter(ctx context.Context, cfg config.Config, llm config.LLMConfig, tokenName string) (usecase.Completer, error) {
	var keys openai.KeySource = openai.StaticKey(llm.APIKey)
	if strings.TrimSpace(llm.APIKey) == "" && cfg.ParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		ssm, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, err
		}
		keys = openai.ParamStoreKey{Getter: ssm, Name: paramstore.Name(cfg.ParamPrefix, tokenName)}
	}
	return openai.NewClient(keys, openai.WithBaseURL(llm.BaseURL))
}

// newStores picks DynamoDB when a table is configured and memory otherwise.
func newStores(ctx context.Context, cfg config.Config) (Stores, error) {
	if cfg.State.Table == "" {
		mem := repository.NewMemory()
		return Stores{Conversations: mem, Journal: mem}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return Stores{}, fmt.Errorf("load AWS config: %w", err)
	}
	client, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.State.Table)
	if err != nil {
		return Stores{}, err
	}
	slog.Debug("using dynamodb state", "table", cfg.State.Table)
	return Stores{Conversations: client, Journal: client}, nil
}

// newLimiter returns nil when Redis is not configured.
func newLimiter(cfg config.Config) (toolserver.Limiter, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return toolserver.NewRedisLimiter(rdb, cfg.Redis.Limit, cfg.Redis.Window)
}
