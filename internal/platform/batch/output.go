package batch

import (
	"context"

	"github.com/google/uuid"

	"github.com/ehr/fhirextract/internal/domain/flatten"
	"github.com/ehr/fhirextract/internal/platform/export"
)

// Output receives the rows of each processed bundle, in input order.
type Output interface {
	Emit(ctx context.Context, rs *flatten.RowSet) error
}

// SinkOutput writes rows to an export sink.
type SinkOutput struct {
	Sink export.Sink
}

func (o SinkOutput) Emit(_ context.Context, rs *flatten.RowSet) error {
	return rs.WriteTo(o.Sink)
}

// RepoOutput stores rows through a row repository under one run id.
type RepoOutput struct {
	Repo  flatten.RowRepository
	RunID uuid.UUID
}

func (o RepoOutput) Emit(ctx context.Context, rs *flatten.RowSet) error {
	return o.Repo.WriteRows(ctx, o.RunID, rs)
}
