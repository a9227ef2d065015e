package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pranavnbapat/pagesense/internal/logger"
	"github.com/pranavnbapat/pagesense/internal/output"
	"github.com/pranavnbapat/pagesense/pkg/extract"
)

// urlResult is one extraction result in structured output formats.
type urlResult struct {
	URL         string `json:"url" yaml:"url"`
	ResolvedURL string `json:"resolved_url" yaml:"resolved_url"`
	FetchedAt   string `json:"fetched_at" yaml:"fetched_at"`
	Text        string `json:"text" yaml:"text"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

func (r urlResult) PageText() string { return r.Text }

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract readable text from URLs",
	Long: `Fetch one or more URLs and print their readable text.

Examples:
  # Plain text to stdout
  pagesense extract -u "https://example.com/article"

  # Structured output with resolved URLs
  pagesense extract -u "https://example.com/article" --format json

  # Throttled crawl of several pages from the same site
  pagesense extract -u "https://example.com/1" -u "https://example.com/2" \
      --polite --format jsonl -o pages.jsonl`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()

	flags.StringSliceP("url", "u", nil, "URL(s) to extract (can be repeated)")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "text", "output format: text, json, jsonl, yaml")

	// Fetch settings
	flags.Duration("timeout", 0, "static fetch timeout (overrides config)")
	flags.String("max-body-size", "", "max fetched body size, e.g. 10MB (overrides config)")
	flags.Bool("polite", false, "throttle per-domain and warm up sessions")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		logError("%v", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	urls, _ := cmd.Flags().GetStringSlice("url")
	urls = append(urls, args...)
	if len(urls) == 0 {
		return cmd.Help()
	}
	logger.Debug("URLs to process", "count", len(urls))

	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Fetch.Timeout = timeout
	}
	if polite, _ := cmd.Flags().GetBool("polite"); polite {
		cfg.Fetch.Polite = true
	}
	if sizeStr, _ := cmd.Flags().GetString("max-body-size"); sizeStr != "" {
		if _, err := humanize.ParseBytes(sizeStr); err != nil {
			logError("invalid max-body-size %q: %v", sizeStr, err)
			return err
		}
		cfg.Fetch.MaxBodySize = sizeStr
	}

	extractCfg, err := cfg.ExtractConfig()
	if err != nil {
		logError("%v", err)
		return err
	}

	extractor := extract.New(extractCfg)
	defer func() { _ = extractor.Close() }()

	outFile := os.Stdout
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logError("failed to create output file %s: %v", outPath, err)
			return err
		}
		defer func() { _ = f.Close() }()
		outFile = f
	}

	formatStr, _ := cmd.Flags().GetString("format")
	writer, err := output.NewWriter(outFile, output.Format(formatStr))
	if err != nil {
		logError("%v", err)
		return err
	}
	defer func() { _ = writer.Close() }()

	var failures int
	for _, rawURL := range urls {
		if ctx.Err() != nil {
			break
		}

		result := urlResult{
			URL:       rawURL,
			FetchedAt: time.Now().UTC().Format(time.RFC3339),
		}

		out, err := extractor.Extract(ctx, rawURL)
		if err != nil {
			failures++
			result.Error = err.Error()
			result.ErrorKind = extract.KindOf(err).String()
			logError("%s: %v", rawURL, err)
		} else {
			result.ResolvedURL = out.ResolvedURL
			result.Text = out.Text
		}

		// Plain text output skips failed URLs; structured formats keep
		// the error record so batch runs stay auditable.
		if err != nil && output.Format(formatStr) == output.FormatText {
			continue
		}
		if err := writer.Write(result); err != nil {
			logError("failed to write result: %v", err)
			return err
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d URLs failed", failures, len(urls))
	}
	return nil
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
