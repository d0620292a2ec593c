package record

import "encoding/json"

// Collection holds the entities of one kind keyed by id, remembering the
// order in which ids were first seen.
type Collection[T any] struct {
	order []string
	byID  map[string]*T
}

func newCollection[T any]() Collection[T] {
	return Collection[T]{byID: make(map[string]*T)}
}

// put stores v under id and returns the stored pointer, reporting whether id
// was new. A repeated id overwrites the stored value in place, so it keeps its
// original position and every pointer already handed out sees the later value.
func (c *Collection[T]) put(id string, v *T) (*T, bool) {
	if old, ok := c.byID[id]; ok {
		*old = *v
		return old, false
	}
	c.order = append(c.order, id)
	c.byID[id] = v
	return v, true
}

// Get returns the entity stored under id.
func (c *Collection[T]) Get(id string) (*T, bool) {
	v, ok := c.byID[id]
	return v, ok
}

// Len returns the number of entities.
func (c *Collection[T]) Len() int { return len(c.order) }

// All returns the entities in insertion order.
func (c *Collection[T]) All() []*T {
	out := make([]*T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// MarshalJSON writes the collection as an id-keyed object.
func (c Collection[T]) MarshalJSON() ([]byte, error) {
	if c.byID == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.byID)
}

// PatientRecord is one patient's longitudinal record built from a single
// bundle. It is read-only once Extract returns.
type PatientRecord struct {
	Patient           Patient
	Encounters        Collection[Encounter]
	Conditions        Collection[Condition]
	Medications       Collection[Medication]
	Observations      Collection[Observation]
	Procedures        Collection[Procedure]
	Immunizations     Collection[Immunization]
	DiagnosticReports Collection[DiagnosticReport]

	index       DateIndex
	linked      int
	dropped     int
	unsupported map[string]int
}

func newPatientRecord() *PatientRecord {
	return &PatientRecord{
		Encounters:        newCollection[Encounter](),
		Conditions:        newCollection[Condition](),
		Medications:       newCollection[Medication](),
		Observations:      newCollection[Observation](),
		Procedures:        newCollection[Procedure](),
		Immunizations:     newCollection[Immunization](),
		DiagnosticReports: newCollection[DiagnosticReport](),
		index:             newDateIndex(),
	}
}

// LinkStats returns how many encounter references were linked and how many
// pointed at encounters outside the bundle.
func (r *PatientRecord) LinkStats() (linked, dropped int) {
	return r.linked, r.dropped
}

// UnsupportedKinds returns how many entries of each ignored resourceType
// the bundle contained.
func (r *PatientRecord) UnsupportedKinds() map[string]int {
	out := make(map[string]int, len(r.unsupported))
	for k, v := range r.unsupported {
		out[k] = v
	}
	return out
}

// HasPatient reports whether the bundle carried a Patient with an id.
// Records without one are structurally valid but should not be used.
func (r *PatientRecord) HasPatient() bool {
	return r.Patient.ID != ""
}

// ActiveConditions returns the active, unabated conditions in bundle order.
func (r *PatientRecord) ActiveConditions() []*Condition {
	out := []*Condition{}
	for _, c := range r.Conditions.All() {
		if c.IsActive() {
			out = append(out, c)
		}
	}
	return out
}

// CurrentMedications returns the active medication requests in bundle order.
func (r *PatientRecord) CurrentMedications() []*Medication {
	out := []*Medication{}
	for _, m := range r.Medications.All() {
		if m.IsCurrent() {
			out = append(out, m)
		}
	}
	return out
}

// EventsForDate returns everything dated to the calendar day of date. Only
// the first ten characters of date are used. A day with no events gives an
// empty bucket.
func (r *PatientRecord) EventsForDate(date string) *EventBucket {
	return r.index.Lookup(date)
}

// EventDates returns every indexed calendar date in ascending order.
func (r *PatientRecord) EventDates() []string {
	return r.index.Dates()
}

// EncounterContext gathers what was going on around one encounter.
type EncounterContext struct {
	Encounter          *Encounter    `json:"encounter" yaml:"encounter"`
	Patient            *Patient      `json:"patient" yaml:"patient"`
	Events             *EventBucket  `json:"events" yaml:"events"`
	ActiveProblems     []*Condition  `json:"active_problems" yaml:"active_problems"`
	CurrentMedications []*Medication `json:"current_medications" yaml:"current_medications"`
}

// Empty reports whether the context was requested for an unknown encounter.
func (c EncounterContext) Empty() bool { return c.Encounter == nil }

// MarshalJSON writes an empty context as {}.
func (c EncounterContext) MarshalJSON() ([]byte, error) {
	if c.Empty() {
		return []byte("{}"), nil
	}
	type plain EncounterContext
	return json.Marshal(plain(c))
}

// MarshalYAML writes an empty context as an empty mapping.
func (c EncounterContext) MarshalYAML() (interface{}, error) {
	if c.Empty() {
		return map[string]interface{}{}, nil
	}
	type plain EncounterContext
	return plain(c), nil
}

// EncounterContext returns the encounter with the events of its start date,
// the active conditions and the current medications. An unknown id gives
// an empty context.
func (r *PatientRecord) EncounterContext(encounterID string) EncounterContext {
	enc, ok := r.Encounters.Get(encounterID)
	if !ok {
		return EncounterContext{}
	}
	return EncounterContext{
		Encounter:          enc,
		Patient:            &r.Patient,
		Events:             r.EventsForDate(enc.StartDate),
		ActiveProblems:     r.ActiveConditions(),
		CurrentMedications: r.CurrentMedications(),
	}
}

// Counts returns the number of extracted resources per kind.
func (r *PatientRecord) Counts() map[Kind]int {
	return map[Kind]int{
		KindEncounter:        r.Encounters.Len(),
		KindCondition:        r.Conditions.Len(),
		KindMedication:       r.Medications.Len(),
		KindObservation:      r.Observations.Len(),
		KindProcedure:        r.Procedures.Len(),
		KindImmunization:     r.Immunizations.Len(),
		KindDiagnosticReport: r.DiagnosticReports.Len(),
	}
}
