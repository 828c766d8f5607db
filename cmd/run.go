// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/wayfarer/internal/agent"
	"github.com/xkilldash9x/wayfarer/internal/browser"
	"github.com/xkilldash9x/wayfarer/internal/config"
	"github.com/xkilldash9x/wayfarer/internal/guardrail"
	"github.com/xkilldash9x/wayfarer/internal/llmclient"
	"github.com/xkilldash9x/wayfarer/internal/observability"
	"github.com/xkilldash9x/wayfarer/internal/sanitize"
	"github.com/xkilldash9x/wayfarer/internal/tasks"
)

// newRunCmd creates the `run` command: execute a natural-language goal
// through the full browse loop.
func newRunCmd() *cobra.Command {
	var (
		maxSteps int
		headless bool
		output   string
	)

	runCmd := &cobra.Command{
		Use:   "run [goal...]",
		Short: "Runs the agent against a natural-language goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			logger := observability.GetLogger()

			if cmd.Flags().Changed("max-steps") {
				cfg.Agent.MaxSteps = maxSteps
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}

			goal := strings.Join(args, " ")
			result, err := runGoal(ctx, cfg, logger, goal)
			if err != nil {
				return err
			}

			return writeResult(result, output)
		},
	}

	runCmd.Flags().IntVar(&maxSteps, "max-steps", 15, "maximum reasoning steps before giving up")
	runCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	runCmd.Flags().StringVarP(&output, "output", "o", "", "write the result JSON to a file instead of stdout")

	return runCmd
}

// runGoal wires the session, oracle, guardrail, and agent together and
// executes one goal end to end.
func runGoal(ctx context.Context, cfg *config.Config, logger *zap.Logger, goal string) (agent.Result, error) {
	oracle, err := llmclient.NewClient(cfg.Agent.LLM, logger)
	if err != nil {
		return agent.Result{}, fmt.Errorf("failed to initialize reasoning oracle: %w", err)
	}
	defer oracle.Close()

	var scanOpts []guardrail.Option
	if cfg.Guardrail.LLMEnabled {
		scanOpts = append(scanOpts, guardrail.WithOracle(oracle))
	}
	scanner := guardrail.NewScanner(cfg.Guardrail, logger, scanOpts...)

	session := browser.NewSession(cfg.Browser, logger)
	if err := session.Start(ctx); err != nil {
		return agent.Result{}, fmt.Errorf("failed to start browser: %w", err)
	}
	defer session.Stop()

	executor := browser.NewExecutor(session, cfg.Browser, logger)

	manager := tasks.NewManager(cfg.Tasks, logger)
	task, err := manager.Create(goal)
	if err != nil {
		return agent.Result{}, err
	}
	manager.Start(task.ID)

	a := agent.New(cfg.Agent, executor, oracle, scanner, logger,
		agent.WithSanitizeOptions(sanitizeOptions(cfg.Sanitizer)),
		agent.WithStepObserver(func(step agent.Step) {
			logger.Info("Step finished",
				zap.Int("step", step.Number),
				zap.String("action", string(step.Action)),
				zap.String("status", string(step.Status)))
		}),
	)

	// The signal-aware context cancels the loop; Stop covers the window
	// where the agent is between context checks.
	g, runCtx := errgroup.WithContext(ctx)
	var result agent.Result
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		result = a.Run(runCtx, goal)
		return nil
	})
	g.Go(func() error {
		select {
		case <-runCtx.Done():
			a.Stop()
		case <-done:
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return agent.Result{}, err
	}

	manager.Complete(task.ID, result)
	return result, nil
}

// sanitizeOptions maps the config section onto the pipeline options.
func sanitizeOptions(cfg config.SanitizerConfig) sanitize.Options {
	opts := sanitize.DefaultOptions()
	if cfg.MaxLength > 0 {
		opts.MaxLength = cfg.MaxLength
	}
	if len(cfg.StripTags) > 0 {
		opts.StripTags = cfg.StripTags
	}
	opts.StripHidden = cfg.StripHidden
	opts.StripInvisible = cfg.StripInvisible
	return opts
}

// writeResult emits the result JSON to the file or stdout.
func writeResult(result agent.Result, output string) error {
	data, err := json.MarshalIndent(&result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}
