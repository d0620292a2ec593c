package flatten

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run describes one batch extraction.
type Run struct {
	ID         uuid.UUID
	InputDir   string
	StartedAt  time.Time
	FinishedAt time.Time
	Discovered int
	Processed  int
	Skipped    int
	Failed     int
}

// RowRepository persists flattened rows tagged with the run that produced
// them.
type RowRepository interface {
	StartRun(ctx context.Context, run *Run) error
	WriteRows(ctx context.Context, runID uuid.UUID, rs *RowSet) error
	FinishRun(ctx context.Context, run *Run) error
}
