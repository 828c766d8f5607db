// File: cmd/scan.go
package cmd

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/wayfarer/internal/config"
	"github.com/xkilldash9x/wayfarer/internal/guardrail"
	"github.com/xkilldash9x/wayfarer/internal/observability"
	"github.com/xkilldash9x/wayfarer/internal/sanitize"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newScanCmd creates the `scan` command: run local markup (a file or stdin)
// through the sanitizer and guardrail without launching a browser.
func newScanCmd() *cobra.Command {
	var rawInput bool

	scanCmd := &cobra.Command{
		Use:   "scan [file]",
		Short: "Scans local markup for prompt-injection patterns",
		Long: `Scans an HTML file (or stdin when no file is given) through the
sanitization pipeline and the guardrail, and prints the scan result as JSON.
Useful for testing guardrail policy against captured pages.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			logger := observability.GetLogger()

			var (
				input []byte
				err   error
			)
			if len(args) == 1 {
				input, err = os.ReadFile(args[0])
			} else {
				input, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			content := string(input)
			if !rawInput {
				content = applySanitizer(content, cfg)
			}

			scanner := guardrail.NewScanner(cfg.Guardrail, logger)
			result := scanner.Scan(ctx, content)

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode scan result: %w", err)
			}
			fmt.Println(string(data))

			if result.Level == guardrail.LevelDangerous {
				// Non-zero exit so scripts can gate on the verdict.
				cmd.SilenceUsage = true
				return fmt.Errorf("dangerous content detected")
			}
			return nil
		},
	}

	scanCmd.Flags().BoolVar(&rawInput, "raw", false, "skip sanitization and scan the input text as-is")

	return scanCmd
}

func applySanitizer(markup string, cfg *config.Config) string {
	return sanitize.Transform(markup, sanitizeOptions(cfg.Sanitizer))
}
