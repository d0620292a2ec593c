package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ehr/fhirextract/internal/config"
	"github.com/ehr/fhirextract/internal/domain/flatten"
	"github.com/ehr/fhirextract/internal/platform/batch"
	"github.com/ehr/fhirextract/internal/platform/db"
	"github.com/ehr/fhirextract/internal/platform/export"
)

func extractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Flatten every bundle in a directory into analytics datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyExtractFlags(cmd, a.cfg); err != nil {
				return err
			}
			noDB, _ := cmd.Flags().GetBool("no-db")
			if noDB {
				a.cfg.DatabaseURL = ""
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_, err := runExtract(ctx, a, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().String("input", "", "Directory of bundle files (overrides INPUT_DIR)")
	cmd.Flags().String("output", "", "Output directory (overrides OUTPUT_DIR)")
	cmd.Flags().StringSlice("formats", nil, "Output formats: csv, parquet, ndjson (overrides OUTPUT_FORMATS)")
	cmd.Flags().Int("workers", 0, "Concurrent bundle workers (overrides WORKERS)")
	cmd.Flags().String("reference-date", "", "Date ages are computed on, YYYY-MM-DD (overrides REFERENCE_DATE)")
	cmd.Flags().Bool("no-db", false, "Do not write rows to Postgres even if DATABASE_URL is set")
	return cmd
}

func applyExtractFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputDir, _ = flags.GetString("input")
	}
	if flags.Changed("output") {
		cfg.OutputDir, _ = flags.GetString("output")
	}
	if flags.Changed("formats") {
		cfg.OutputFormats, _ = flags.GetStringSlice("formats")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("reference-date") {
		cfg.ReferenceDate, _ = flags.GetString("reference-date")
	}
	return cfg.Validate()
}

// runExtract runs one batch and prints its summary to out.
func runExtract(ctx context.Context, a *app, out io.Writer) (*batch.Summary, error) {
	cfg := a.cfg
	asOf, err := cfg.ReferenceTime(time.Now())
	if err != nil {
		return nil, err
	}
	formats, err := cfg.Formats()
	if err != nil {
		return nil, err
	}
	writer, err := export.NewWriter(cfg.OutputDir, formats, flatten.Schema{})
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	outputs := []batch.Output{batch.SinkOutput{Sink: writer}}

	var (
		repo flatten.RowRepository
		run  *flatten.Run
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			writer.Close()
			return nil, err
		}
		defer pool.Close()

		repo = flatten.NewRowRepoPG(pool)
		run = &flatten.Run{ID: runID, InputDir: cfg.InputDir, StartedAt: time.Now().UTC()}
		if err := repo.StartRun(ctx, run); err != nil {
			writer.Close()
			return nil, err
		}
		outputs = append(outputs, batch.RepoOutput{Repo: repo, RunID: runID})
		a.logger.Info().Str("run_id", runID.String()).Msg("writing rows to database")
	}

	driver := batch.NewDriver(batch.Options{
		RunID:             runID,
		InputDir:          cfg.InputDir,
		SkipPrefixes:      cfg.SkipPrefixes,
		Workers:           cfg.Workers,
		ProgressEvery:     cfg.ProgressEvery,
		MaxReportedErrors: cfg.MaxReportedErrors,
		MaxBundleBytes:    cfg.MaxBundleBytes,
		AsOf:              asOf,
	}, a.logger, outputs...)

	sum, runErr := driver.Run(ctx)
	closeErr := writer.Close()
	a.logger.Debug().Interface("rows", writer.RowCounts()).Strs("files", writer.Paths()).Msg("output closed")

	if repo != nil && sum != nil {
		run.FinishedAt = time.Now().UTC()
		run.Discovered = sum.Discovered
		run.Processed = sum.Processed
		run.Skipped = sum.Skipped
		run.Failed = sum.Failed
		// The run context may already be cancelled.
		fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := repo.FinishRun(fctx, run); err != nil {
			a.logger.Error().Err(err).Str("run_id", runID.String()).Msg("failed to record run result")
		}
		cancel()
	}

	if sum != nil {
		printSummary(out, sum, writer.Paths())
	}
	return sum, errors.Join(runErr, closeErr)
}

func printSummary(w io.Writer, sum *batch.Summary, paths []string) {
	fmt.Fprintf(w, "Run %s finished in %s\n", sum.RunID, sum.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "%-12s %d\n", "discovered", sum.Discovered)
	fmt.Fprintf(w, "%-12s %d\n", "processed", sum.Processed)
	fmt.Fprintf(w, "%-12s %d\n", "skipped", sum.Skipped)
	fmt.Fprintf(w, "%-12s %d\n", "failed", sum.Failed)
	if sum.Cancelled > 0 {
		fmt.Fprintf(w, "%-12s %d\n", "cancelled", sum.Cancelled)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-20s %s\n", "DATASET", "ROWS")
	fmt.Fprintln(w, "-------------------- ----------")
	for _, ds := range flatten.Datasets {
		fmt.Fprintf(w, "%-20s %d\n", ds, sum.Rows[ds])
	}

	if len(sum.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Bundles not processed:")
		for _, e := range sum.Errors {
			fmt.Fprintf(w, "  %-9s %s: %s\n", e.Outcome, e.File, e.Reason)
		}
		if n := sum.Skipped + sum.Failed - len(sum.Errors); n > 0 {
			fmt.Fprintf(w, "  ... and %d more\n", n)
		}
	}

	if len(paths) > 0 {
		sorted := append([]string(nil), paths...)
		sort.Strings(sorted)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Files written:")
		for _, p := range sorted {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
}
