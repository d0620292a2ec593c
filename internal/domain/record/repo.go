package record

import (
	"context"
	"sync"
)

// RecordRepository stores extracted records keyed by patient id.
type RecordRepository interface {
	Save(ctx context.Context, rec *PatientRecord) error
	Get(ctx context.Context, patientID string) (*PatientRecord, error)
	List(ctx context.Context, limit, offset int) ([]*PatientRecord, int, error)
}

// MemoryRepository keeps records in process memory. Saving a patient again
// replaces the record but keeps its listing position.
type MemoryRepository struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*PatientRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*PatientRecord)}
}

func (r *MemoryRepository) Save(_ context.Context, rec *PatientRecord) error {
	if !rec.HasPatient() {
		return ErrNoPatient
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := rec.Patient.ID
	if _, ok := r.records[id]; !ok {
		r.order = append(r.order, id)
	}
	r.records[id] = rec
	return nil
}

// Len returns the number of stored records.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *MemoryRepository) Get(_ context.Context, patientID string) (*PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[patientID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) List(_ context.Context, limit, offset int) ([]*PatientRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := len(r.order)
	if offset >= total {
		return []*PatientRecord{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	out := make([]*PatientRecord, 0, end-offset)
	for _, id := range r.order[offset:end] {
		out = append(out, r.records[id])
	}
	return out, total, nil
}
