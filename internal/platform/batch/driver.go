package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/fhirextract/internal/domain/flatten"
	"github.com/ehr/fhirextract/internal/domain/record"
)

// Options controls one batch run.
type Options struct {
	RunID             uuid.UUID
	InputDir          string
	SkipPrefixes      []string
	Workers           int
	ProgressEvery     int
	MaxReportedErrors int
	MaxBundleBytes    int64
	AsOf              time.Time
}

// Outcome is what happened to one bundle.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeSkipped
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return "cancelled"
}

// BundleError records why a bundle was skipped or failed.
type BundleError struct {
	File    string  `json:"file"`
	Outcome Outcome `json:"-"`
	Reason  string  `json:"reason"`
}

// Summary reports a finished run.
type Summary struct {
	RunID      uuid.UUID
	Discovered int
	Processed  int
	Skipped    int
	Failed     int
	Cancelled  int
	Rows       map[flatten.Dataset]int
	Errors     []BundleError // at most MaxReportedErrors
	Duration   time.Duration
}

type bundleResult struct {
	path    string
	outcome Outcome
	reason  string
	rows    *flatten.RowSet
}

// Driver runs the extraction over a directory of bundles.
type Driver struct {
	opts    Options
	log     zerolog.Logger
	outputs []Output
}

func NewDriver(opts Options, logger zerolog.Logger, outputs ...Output) *Driver {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	return &Driver{opts: opts, log: logger, outputs: outputs}
}

// Run discovers and processes every bundle. Bundles are read and extracted
// concurrently, but their rows reach the outputs in input order. A bad bundle
// only affects itself; an output error stops the run. Cancelling ctx stops
// dispatching new bundles and the remainder are counted as cancelled.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	paths, err := Discover(d.opts.InputDir, d.opts.SkipPrefixes)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		RunID:      d.opts.RunID,
		Discovered: len(paths),
		Rows:       make(map[flatten.Dataset]int),
	}
	d.log.Info().
		Str("run_id", d.opts.RunID.String()).
		Str("input_dir", d.opts.InputDir).
		Int("bundles", len(paths)).
		Int("workers", d.opts.Workers).
		Msg("batch started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan bundleResult, len(paths))
	for i := range results {
		results[i] = make(chan bundleResult, 1)
	}
	// window bounds how far extraction may run ahead of the ordered emit.
	window := make(chan struct{}, d.opts.Workers*2)

	var g errgroup.Group
	g.SetLimit(d.opts.Workers)
	go func() {
		for i, path := range paths {
			acquired := false
			select {
			case window <- struct{}{}:
				acquired = true
			case <-runCtx.Done():
			}
			if runCtx.Err() != nil {
				if acquired {
					<-window
				}
				results[i] <- bundleResult{path: path, outcome: OutcomeCancelled}
				continue
			}
			i, path := i, path
			g.Go(func() error {
				results[i] <- d.process(path)
				return nil
			})
		}
	}()

	var emitErr error
	reported := 0
	for i := range paths {
		r := <-results[i]
		if r.outcome != OutcomeCancelled {
			<-window
		}

		switch r.outcome {
		case OutcomeProcessed:
			if emitErr == nil {
				if err := d.emit(runCtx, r.rows); err != nil {
					emitErr = fmt.Errorf("write rows for %s: %w", filepath.Base(r.path), err)
					cancel()
				}
			}
			if emitErr == nil {
				sum.Processed++
				for _, ds := range flatten.Datasets {
					sum.Rows[ds] += r.rows.Len(ds)
				}
			}
		case OutcomeSkipped, OutcomeFailed:
			if r.outcome == OutcomeSkipped {
				sum.Skipped++
			} else {
				sum.Failed++
			}
			if reported < d.opts.MaxReportedErrors {
				reported++
				sum.Errors = append(sum.Errors, BundleError{File: filepath.Base(r.path), Outcome: r.outcome, Reason: r.reason})
				d.log.Warn().
					Str("file", filepath.Base(r.path)).
					Str("outcome", r.outcome.String()).
					Str("reason", r.reason).
					Msg("bundle not processed")
			}
		case OutcomeCancelled:
			sum.Cancelled++
		}

		if n := i + 1; d.opts.ProgressEvery > 0 && n%d.opts.ProgressEvery == 0 {
			d.log.Info().Int("done", n).Int("total", len(paths)).Msg("progress")
		}
	}
	g.Wait()

	sum.Duration = time.Since(start)
	ev := d.log.Info()
	if emitErr != nil {
		ev = d.log.Error().Err(emitErr)
	}
	ev.Str("run_id", sum.RunID.String()).
		Int("discovered", sum.Discovered).
		Int("processed", sum.Processed).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Int("cancelled", sum.Cancelled).
		Int("suppressed_errors", sum.Skipped+sum.Failed-len(sum.Errors)).
		Dur("duration", sum.Duration).
		Msg("batch finished")

	if emitErr != nil {
		return sum, emitErr
	}
	if sum.Cancelled > 0 {
		return sum, ctx.Err()
	}
	return sum, nil
}

func (d *Driver) emit(ctx context.Context, rs *flatten.RowSet) error {
	for _, o := range d.outputs {
		if err := o.Emit(ctx, rs); err != nil {
			return err
		}
	}
	return nil
}

// process reads, extracts and flattens one bundle.
func (d *Driver) process(path string) bundleResult {
	data, err := readBounded(path, d.opts.MaxBundleBytes)
	if err != nil {
		return bundleResult{path: path, outcome: OutcomeFailed, reason: err.Error()}
	}
	rec, err := record.Extract(data)
	if err != nil {
		return bundleResult{path: path, outcome: OutcomeFailed, reason: err.Error()}
	}
	if !rec.HasPatient() {
		return bundleResult{path: path, outcome: OutcomeSkipped, reason: record.ErrNoPatient.Error()}
	}
	return bundleResult{path: path, outcome: OutcomeProcessed, rows: flatten.Flatten(rec, d.opts.AsOf)}
}

var errTooLarge = errors.New("bundle exceeds size limit")

func readBounded(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if limit <= 0 {
		return io.ReadAll(f)
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", errTooLarge, limit)
	}
	return data, nil
}
