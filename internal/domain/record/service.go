package record

import (
	"context"
	"time"
)

// Summary is the condensed view of one record returned by the API and the
// inspect command.
type Summary struct {
	PatientID         string         `json:"patient_id" yaml:"patient_id"`
	Name              string         `json:"name" yaml:"name"`
	Gender            string         `json:"gender" yaml:"gender"`
	BirthDate         string         `json:"birth_date" yaml:"birth_date"`
	Age               int            `json:"age" yaml:"age"`
	Counts            map[Kind]int   `json:"counts" yaml:"counts"`
	EventDates        int            `json:"event_dates" yaml:"event_dates"`
	FirstEventDate    string         `json:"first_event_date,omitempty" yaml:"first_event_date,omitempty"`
	LastEventDate     string         `json:"last_event_date,omitempty" yaml:"last_event_date,omitempty"`
	LinkedReferences  int            `json:"linked_references" yaml:"linked_references"`
	DroppedReferences int            `json:"dropped_references" yaml:"dropped_references"`
	Unsupported       map[string]int `json:"unsupported,omitempty" yaml:"unsupported,omitempty"`
}

// Summarize condenses rec, computing the patient's age on asOf.
func Summarize(rec *PatientRecord, asOf time.Time) Summary {
	dates := rec.EventDates()
	linked, dropped := rec.LinkStats()
	s := Summary{
		PatientID:         rec.Patient.ID,
		Name:              rec.Patient.Name,
		Gender:            rec.Patient.Gender,
		BirthDate:         rec.Patient.BirthDate,
		Age:               rec.Patient.Age(asOf),
		Counts:            rec.Counts(),
		EventDates:        len(dates),
		LinkedReferences:  linked,
		DroppedReferences: dropped,
		Unsupported:       rec.UnsupportedKinds(),
	}
	if len(dates) > 0 {
		s.FirstEventDate = dates[0]
		s.LastEventDate = dates[len(dates)-1]
	}
	return s
}

type Service struct {
	repo RecordRepository
	asOf time.Time
}

// NewService builds a service whose ages are computed on asOf.
func NewService(repo RecordRepository, asOf time.Time) *Service {
	return &Service{repo: repo, asOf: asOf}
}

// AsOf returns the reference date used for ages.
func (s *Service) AsOf() time.Time { return s.asOf }

// IngestBundle extracts a bundle and stores the record. Bundles without a
// patient id are rejected with ErrNoPatient.
func (s *Service) IngestBundle(ctx context.Context, data []byte) (*PatientRecord, error) {
	rec, err := Extract(data)
	if err != nil {
		return nil, err
	}
	if !rec.HasPatient() {
		return nil, ErrNoPatient
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) GetRecord(ctx context.Context, patientID string) (*PatientRecord, error) {
	return s.repo.Get(ctx, patientID)
}

func (s *Service) GetSummary(ctx context.Context, patientID string) (Summary, error) {
	rec, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(rec, s.asOf), nil
}

func (s *Service) ListSummaries(ctx context.Context, limit, offset int) ([]Summary, int, error) {
	recs, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Summarize(rec, s.asOf))
	}
	return out, total, nil
}

func (s *Service) ActiveConditions(ctx context.Context, patientID string) ([]*Condition, error) {
	rec, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return rec.ActiveConditions(), nil
}

func (s *Service) CurrentMedications(ctx context.Context, patientID string) ([]*Medication, error) {
	rec, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return rec.CurrentMedications(), nil
}

func (s *Service) EventsForDate(ctx context.Context, patientID, date string) (*EventBucket, error) {
	rec, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return rec.EventsForDate(date), nil
}

func (s *Service) EncounterContext(ctx context.Context, patientID, encounterID string) (EncounterContext, error) {
	rec, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return EncounterContext{}, err
	}
	return rec.EncounterContext(encounterID), nil
}
