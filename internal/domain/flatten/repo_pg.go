package flatten

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowRepoPG struct{ pool *pgxpool.Pool }

func NewRowRepoPG(pool *pgxpool.Pool) RowRepository {
	return &rowRepoPG{pool: pool}
}

func (r *rowRepoPG) StartRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO extract_run (id, input_dir, started_at)
		VALUES ($1, $2, $3)`,
		run.ID, run.InputDir, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert extract_run: %w", err)
	}
	return nil
}

// WriteRows copies every non-empty dataset of rs in a single transaction, so
// a bundle's rows land all together or not at all.
func (r *rowRepoPG) WriteRows(ctx context.Context, runID uuid.UUID, rs *RowSet) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range Datasets {
		rows := rs.Rows(d)
		if len(rows) == 0 {
			continue
		}
		cols := append([]string{"run_id"}, Columns(d)...)
		src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return append([]any{runID}, Values(rows[i])...), nil
		})
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{string(d)}, cols, src); err != nil {
			return fmt.Errorf("copy %s: %w", d, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *rowRepoPG) FinishRun(ctx context.Context, run *Run) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE extract_run SET finished_at=$2, discovered=$3, processed=$4,
			skipped=$5, failed=$6
		WHERE id = $1`,
		run.ID, run.FinishedAt, run.Discovered, run.Processed, run.Skipped, run.Failed)
	if err != nil {
		return fmt.Errorf("update extract_run: %w", err)
	}
	return nil
}
