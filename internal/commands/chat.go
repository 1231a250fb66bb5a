package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"llm-toolbox/internal/domain"
	"llm-toolbox/internal/integrations/paramstore"
	"llm-toolbox/internal/render"
	"llm-toolbox/internal/usecase"
)

func newChatCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask the chat model, once or in a REPL",
		Long: `Send a question to the configured OpenAI-compatible chat model and render
the Markdown answer with a token usage footer. Without a question the command
starts a REPL that keeps one conversation going; enter "exit" to leave.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for key, flag := range map[string]string{"chat.system": "system", "render.style": "style"} {
				if err := a.bind(cmd, key, flag); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			cfg := a.cfg

			llm, err := a.deps.NewCompleter(ctx, cfg, cfg.OpenAI, paramstore.OpenAITokenName)
			if err != nil {
				return err
			}
			stores, err := a.deps.NewStores(ctx, cfg)
			if err != nil {
				return fmt.Errorf("state: %w", err)
			}
			svc, err := usecase.NewChatService(llm, stores.Conversations, usecase.ChatConfig{
				Model:           cfg.OpenAI.Model,
				MaxContextItems: cfg.Chat.MaxContext,
				MaxQuestionLen:  cfg.Chat.MaxQuestionLen,
				MaxTurns:        cfg.Chat.MaxTurns,
				Moderate:        cfg.Chat.Moderate,
			})
			if err != nil {
				return err
			}
			r, err := render.New(render.Options{Style: cfg.Render.Style, Width: cfg.Render.Width})
			if err != nil {
				return err
			}

			s := &chatSession{svc: svc, renderer: r, system: cfg.Chat.System, out: cmd.OutOrStdout()}
			s.conversationID, _ = cmd.Flags().GetString("conversation")

			if len(args) == 1 {
				return s.ask(ctx, args[0])
			}
			return s.repl(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().String("conversation", "", "Continue an existing conversation id")
	cmd.Flags().String("system", "", "System prompt")
	cmd.Flags().String("style", "", "Render style (auto, dark, light, notty)")
	return cmd
}

type chatSession struct {
	svc            *usecase.ChatService
	renderer       *render.Renderer
	system         string
	conversationID string
	out            io.Writer
}

func (s *chatSession) ask(ctx context.Context, question string) error {
	res, err := s.svc.Ask(ctx, usecase.AskInput{
		Question:       question,
		ConversationID: s.conversationID,
		System:         s.system,
	})
	if err != nil {
		return err
	}
	s.conversationID = res.ConversationID

	text, err := s.renderer.Completion(domain.Completion{Content: res.Answer, Model: res.Model, Usage: res.Usage})
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, text)
	fmt.Fprintln(s.out, render.SubtleStyle.Render("conversation "+s.conversationID))
	return nil
}

func (s *chatSession) repl(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, render.PromptStyle.Render("> "))
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := s.ask(ctx, line); err != nil {
			fmt.Fprintln(s.out, render.ErrorStyle.Render(err.Error()))
		}
	}
}
