package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"llm-toolbox/handler"
	"llm-toolbox/internal/config"
	"llm-toolbox/internal/integrations/openai"
	"llm-toolbox/internal/integrations/paramstore"
	"llm-toolbox/internal/logger"
	"llm-toolbox/internal/repository"
	"llm-toolbox/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	// Defaults, then toolbox.yaml when bundled, then the environment
	// (STATE_TABLE, PARAM_PREFIX, MAX_CONTEXT_ITEMS, MAX_QUESTION_LENGTH, ...).
	conf, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger.Init(conf.Log.Level, conf.Log.Format)
	stateTable := mustSet("STATE_TABLE", conf.State.Table)
	paramPrefix := mustSet("PARAM_PREFIX", conf.ParamPrefix)

	// ---- AWS SDK config ----
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}

	openaiClient, err := openai.NewClient(openai.ParamStoreKey{
		Getter: ssmClient,
		Name:   paramstore.Name(paramPrefix, paramstore.OpenAITokenName),
	}, openai.WithBaseURL(conf.OpenAI.BaseURL))
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}
	geminiClient, err := openai.NewClient(openai.ParamStoreKey{
		Getter: ssmClient,
		Name:   paramstore.Name(paramPrefix, paramstore.GoogleTokenName),
	}, openai.WithBaseURL(conf.Gemini.BaseURL))
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}

	// ---- Use cases ----
	chatService, err := usecase.NewChatService(openaiClient, stateClient, usecase.ChatConfig{
		Model:           conf.OpenAI.Model,
		MaxContextItems: conf.Chat.MaxContext,
		MaxQuestionLen:  conf.Chat.MaxQuestionLen,
		MaxTurns:        conf.Chat.MaxTurns,
		Moderate:        conf.Chat.Moderate,
	})
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	toolService := usecase.NewToolService(geminiClient, usecase.ToolConfig{
		PoemModel: conf.Gemini.Model,
		Journal:   stateClient,
	})

	// ---- Handler ----
	h, err := handler.NewHandler(chatService, toolService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

// mustSet exits when a required setting resolved to empty.
func mustSet(key, value string) string {
	if value == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return value
}
