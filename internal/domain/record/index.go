package record

import (
	"sort"

	"github.com/ehr/fhirextract/internal/platform/fhir"
)

// DateKey reduces a date or date-time to YYYY-MM-DD by keeping its first ten
// characters. Indexing and every date query go through it; callers joining
// their own dates against a record must apply it too.
func DateKey(s string) string {
	return fhir.DateKey(s)
}

// EventBucket holds the resources dated to one calendar day. Every list is
// non-nil, so an empty bucket has the same shape as a populated one.
type EventBucket struct {
	Encounters        []*Encounter        `json:"encounters" yaml:"encounters"`
	Conditions        []*Condition        `json:"conditions" yaml:"conditions"`
	Medications       []*Medication       `json:"medications" yaml:"medications"`
	Observations      []*Observation      `json:"observations" yaml:"observations"`
	Procedures        []*Procedure        `json:"procedures" yaml:"procedures"`
	Immunizations     []*Immunization     `json:"immunizations" yaml:"immunizations"`
	DiagnosticReports []*DiagnosticReport `json:"diagnostic_reports" yaml:"diagnostic_reports"`
}

// NewEventBucket returns a bucket with every list empty.
func NewEventBucket() *EventBucket {
	return &EventBucket{
		Encounters:        []*Encounter{},
		Conditions:        []*Condition{},
		Medications:       []*Medication{},
		Observations:      []*Observation{},
		Procedures:        []*Procedure{},
		Immunizations:     []*Immunization{},
		DiagnosticReports: []*DiagnosticReport{},
	}
}

// Len returns the number of resources in the bucket.
func (b *EventBucket) Len() int {
	return len(b.Encounters) + len(b.Conditions) + len(b.Medications) +
		len(b.Observations) + len(b.Procedures) + len(b.Immunizations) +
		len(b.DiagnosticReports)
}

// Counts returns the per-kind sizes of the bucket.
func (b *EventBucket) Counts() map[Kind]int {
	return map[Kind]int{
		KindEncounter:        len(b.Encounters),
		KindCondition:        len(b.Conditions),
		KindMedication:       len(b.Medications),
		KindObservation:      len(b.Observations),
		KindProcedure:        len(b.Procedures),
		KindImmunization:     len(b.Immunizations),
		KindDiagnosticReport: len(b.DiagnosticReports),
	}
}

// DateIndex maps calendar dates to the resources dated that day. It is only
// appended to while a bundle is walked.
type DateIndex struct {
	buckets map[string]*EventBucket
}

func newDateIndex() DateIndex {
	return DateIndex{buckets: make(map[string]*EventBucket)}
}

// bucketFor returns the bucket for date, creating an empty one on first use.
// An empty key means the resource has no usable date and gets no bucket.
func (ix *DateIndex) bucketFor(date string) *EventBucket {
	key := DateKey(date)
	if key == "" {
		return nil
	}
	b, ok := ix.buckets[key]
	if !ok {
		b = NewEventBucket()
		ix.buckets[key] = b
	}
	return b
}

func (ix *DateIndex) addEncounter(date string, e *Encounter) {
	if b := ix.bucketFor(date); b != nil {
		b.Encounters = append(b.Encounters, e)
	}
}

func (ix *DateIndex) addCondition(date string, c *Condition) {
	if b := ix.bucketFor(date); b != nil {
		b.Conditions = append(b.Conditions, c)
	}
}

func (ix *DateIndex) addMedication(date string, m *Medication) {
	if b := ix.bucketFor(date); b != nil {
		b.Medications = append(b.Medications, m)
	}
}

func (ix *DateIndex) addObservation(date string, o *Observation) {
	if b := ix.bucketFor(date); b != nil {
		b.Observations = append(b.Observations, o)
	}
}

func (ix *DateIndex) addProcedure(date string, p *Procedure) {
	if b := ix.bucketFor(date); b != nil {
		b.Procedures = append(b.Procedures, p)
	}
}

func (ix *DateIndex) addImmunization(date string, i *Immunization) {
	if b := ix.bucketFor(date); b != nil {
		b.Immunizations = append(b.Immunizations, i)
	}
}

func (ix *DateIndex) addDiagnosticReport(date string, r *DiagnosticReport) {
	if b := ix.bucketFor(date); b != nil {
		b.DiagnosticReports = append(b.DiagnosticReports, r)
	}
}

// Lookup returns the bucket for date, or an empty bucket when nothing
// happened that day. The returned bucket is never nil.
func (ix *DateIndex) Lookup(date string) *EventBucket {
	if b, ok := ix.buckets[DateKey(date)]; ok {
		return b
	}
	return NewEventBucket()
}

// Dates returns the indexed dates in ascending order.
func (ix *DateIndex) Dates() []string {
	out := make([]string, 0, len(ix.buckets))
	for d := range ix.buckets {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of indexed dates.
func (ix *DateIndex) Len() int { return len(ix.buckets) }
