// Command ledger-report writes a balance sheet PDF for a date range.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/report"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup always happens.
func run(args []string) int {
	fs := flag.NewFlagSet("ledger-report", flag.ContinueOnError)
	start := fs.String("start", "", "first day to include (YYYY-MM-DD)")
	end := fs.String("end", "", "last day to include (YYYY-MM-DD)")
	out := fs.String("o", "", "output file or directory (default: generated name in the current directory)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentReport, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	// No events for a read-only run.
	cfg.AMQPURL = ""

	rng, err := parseRange(*start, *end)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		return 1
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	pdf, doc, err := res.Service.Report(ctx, rng, report.Options{
		Title:          cfg.ReportTitle,
		CurrencySymbol: cfg.CurrencySymbol,
	})
	if err != nil {
		logger.Error("Report export failed", log.FieldError, err)
		return 1
	}

	path := outputPath(*out, doc.FileName)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		logger.Error("Failed to write report", log.FieldError, err, "path", path)
		return 1
	}
	fmt.Println(path)
	return 0
}

func parseRange(start, end string) (ledger.DateRange, error) {
	s, err := core.ParseDate(start)
	if err != nil {
		return ledger.DateRange{}, fmt.Errorf("-start: %w", err)
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return ledger.DateRange{}, fmt.Errorf("-end: %w", err)
	}
	return ledger.DateRange{Start: s, End: e}, nil
}

// outputPath resolves -o: empty means the generated name, a directory gets
// the generated name inside it.
func outputPath(out, name string) string {
	if out == "" {
		return name
	}
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}
