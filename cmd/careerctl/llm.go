package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/garnizeh/careerprep/internal/ai"
	"github.com/garnizeh/careerprep/internal/config"
	"github.com/garnizeh/careerprep/pkg/llm"
	"github.com/garnizeh/careerprep/pkg/models"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

func newLLMCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "llm",
		Short: "Inspect the configured model provider",
	}
	cmd.AddCommand(newLLMCheckCmd(opts))
	return cmd
}

func newLLMCheckCmd(opts *rootOptions) *cobra.Command {
	var (
		role string
		ask  bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the provider is reachable and answers a question-generation prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			gen, closeGen, err := newGenerator(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeGen()

			return checkGenerator(cmd.Context(), cmd.OutOrStdout(), gen, cfg.LLM.Timeout, role, ask)
		},
	}
	cmd.Flags().StringVar(&role, "role", "Software Engineer", "Job role used for the sample prompt")
	cmd.Flags().BoolVar(&ask, "ask", true, "Send a question-generation prompt after the health check")
	return cmd
}

func newGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, func(), error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		c, err := llm.NewGeminiClient(ctx, cfg.Gemini, cfg.LLM.Model)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	case config.ProviderOllama:
		c, err := llm.NewDefaultOllamaClient(cfg.Ollama, cfg.LLM.Model)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
}

func checkGenerator(ctx context.Context, out io.Writer, gen llm.Generator, timeout time.Duration, role string, ask bool) error {
	if hc, ok := gen.(healthChecker); ok {
		if err := hc.Health(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "health: ok")
	}
	if !ask {
		return nil
	}

	engine, err := ai.NewEngine(gen, ai.WithTimeout(timeout))
	if err != nil {
		return err
	}
	start := time.Now()
	questions, err := engine.GenerateQuestions(ctx, role, models.QuestionTypeMixed, nil)
	if err != nil {
		return fmt.Errorf("generate questions: %w", err)
	}
	fmt.Fprintf(out, "questions: %d in %s\n", len(questions), time.Since(start).Round(time.Millisecond))
	for i, q := range questions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, q)
	}
	return nil
}
