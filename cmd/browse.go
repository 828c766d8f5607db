// File: cmd/browse.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/wayfarer/internal/browser"
	"github.com/xkilldash9x/wayfarer/internal/guardrail"
	"github.com/xkilldash9x/wayfarer/internal/observability"
)

// newBrowseCmd creates the `browse` command: fetch a single page, run it
// through the sanitizer and guardrail, and print what the agent would see.
func newBrowseCmd() *cobra.Command {
	var asJSON bool

	browseCmd := &cobra.Command{
		Use:   "browse <url>",
		Short: "Fetches one page and prints the sanitized, screened text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			logger := observability.GetLogger()

			session := browser.NewSession(cfg.Browser, logger)
			if err := session.Start(ctx); err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer session.Stop()

			executor := browser.NewExecutor(session, cfg.Browser, logger)
			raw, err := executor.Navigate(ctx, args[0])
			if err != nil {
				return err
			}

			scanner := guardrail.NewScanner(cfg.Guardrail, logger)
			result := scanner.Scan(ctx, applySanitizer(raw, cfg))

			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Threat level: %s\n", result.Level)
			for _, match := range result.Matches {
				fmt.Printf("  match: %s\n", match)
			}
			fmt.Println()
			fmt.Println(result.Content)
			return nil
		},
	}

	browseCmd.Flags().BoolVar(&asJSON, "json", false, "emit the scan result as JSON")

	return browseCmd
}
