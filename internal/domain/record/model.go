package record

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ehr/fhirextract/internal/platform/fhir"
	"github.com/ehr/fhirextract/pkg/fhirmodels"
)

// Kind is the resourceType discriminator of a supported bundle entry.
type Kind string

const (
	KindPatient          Kind = fhirmodels.ResourcePatient
	KindEncounter        Kind = fhirmodels.ResourceEncounter
	KindCondition        Kind = fhirmodels.ResourceCondition
	KindMedication       Kind = fhirmodels.ResourceMedicationRequest
	KindObservation      Kind = fhirmodels.ResourceObservation
	KindProcedure        Kind = fhirmodels.ResourceProcedure
	KindImmunization     Kind = fhirmodels.ResourceImmunization
	KindDiagnosticReport Kind = fhirmodels.ResourceDiagnosticReport
)

// Display labels substituted when a resource carries no human-readable text.
const (
	DefaultEncounterType   = "General Encounter"
	DefaultEncounterClass  = "ambulatory"
	DefaultEncounterReason = "Routine follow-up"
	ReasonSeeConditions    = "See conditions"
)

// Patient holds demographics taken from the bundle's Patient resource.
type Patient struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	BirthDate     string `json:"birth_date" yaml:"birth_date"`
	Gender        string `json:"gender" yaml:"gender"`
	Race          string `json:"race" yaml:"race"`
	Ethnicity     string `json:"ethnicity" yaml:"ethnicity"`
	MaritalStatus string `json:"marital_status" yaml:"marital_status"`
	Address       string `json:"address" yaml:"address"`
	Phone         string `json:"phone" yaml:"phone"`
}

// Age returns the patient's age in whole years on asOf. A birth date that
// cannot be read (or lies after asOf) gives 0. Year-only and year-month
// birth dates are treated as the first day of that period.
func (p *Patient) Age(asOf time.Time) int {
	born, ok := parsePartialDate(p.BirthDate)
	if !ok {
		return 0
	}
	years := asOf.Year() - born.Year()
	if asOf.Month() < born.Month() || (asOf.Month() == born.Month() && asOf.Day() < born.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func parsePartialDate(s string) (time.Time, bool) {
	s = DateKey(s)
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Condition is a diagnosis or problem-list entry.
type Condition struct {
	ID             string  `json:"id" yaml:"id"`
	Code           string  `json:"code" yaml:"code"`
	Display        string  `json:"display" yaml:"display"`
	ClinicalStatus string  `json:"clinical_status" yaml:"clinical_status"`
	OnsetDate      string  `json:"onset_date" yaml:"onset_date"`
	AbatementDate  *string `json:"abatement_date" yaml:"abatement_date"`
	EncounterRef   string  `json:"encounter_ref,omitempty" yaml:"encounter_ref,omitempty"`
}

// IsActive reports whether the condition is active and has not abated.
func (c *Condition) IsActive() bool {
	return c.ClinicalStatus == fhirmodels.ConditionActive && c.AbatementDate == nil
}

// Medication is a MedicationRequest.
type Medication struct {
	ID            string `json:"id" yaml:"id"`
	Code          string `json:"code" yaml:"code"`
	Display       string `json:"display" yaml:"display"`
	Status        string `json:"status" yaml:"status"`
	AuthoredOn    string `json:"authored_on" yaml:"authored_on"`
	DosageText    string `json:"dosage_text" yaml:"dosage_text"`
	ReasonCode    string `json:"reason_code" yaml:"reason_code"`
	ReasonDisplay string `json:"reason_display" yaml:"reason_display"`
	EncounterRef  string `json:"encounter_ref,omitempty" yaml:"encounter_ref,omitempty"`
}

// IsCurrent reports whether the medication request is active.
func (m *Medication) IsCurrent() bool {
	return m.Status == fhirmodels.MedicationRequestActive
}

// ValueKind tags which variant an ObservationValue holds.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueQuantity
	ValueCoded
	ValueText
)

func (k ValueKind) String() string {
	switch k {
	case ValueQuantity:
		return "quantity"
	case ValueCoded:
		return "coded"
	case ValueText:
		return "text"
	}
	return "none"
}

// ObservationValue is the value[x] of an observation: a numeric quantity,
// the text of a coded concept, or a plain string.
type ObservationValue struct {
	Kind     ValueKind
	Quantity decimal.Decimal
	Text     string
}

// QuantityValue builds a numeric observation value.
func QuantityValue(d decimal.Decimal) ObservationValue {
	return ObservationValue{Kind: ValueQuantity, Quantity: d}
}

// CodedValue builds a coded observation value.
func CodedValue(text string) ObservationValue {
	return ObservationValue{Kind: ValueCoded, Text: text}
}

// TextValue builds a plain string observation value.
func TextValue(text string) ObservationValue {
	return ObservationValue{Kind: ValueText, Text: text}
}

// String renders the value as text; a missing value renders as "".
func (v ObservationValue) String() string {
	switch v.Kind {
	case ValueQuantity:
		return v.Quantity.String()
	case ValueCoded, ValueText:
		return v.Text
	}
	return ""
}

// MarshalJSON writes quantities as JSON numbers, text as strings and a
// missing value as null.
func (v ObservationValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueQuantity:
		return []byte(v.Quantity.String()), nil
	case ValueCoded, ValueText:
		return json.Marshal(v.Text)
	}
	return []byte("null"), nil
}

// MarshalYAML mirrors MarshalJSON for YAML output.
func (v ObservationValue) MarshalYAML() (interface{}, error) {
	switch v.Kind {
	case ValueQuantity:
		return v.Quantity.InexactFloat64(), nil
	case ValueCoded, ValueText:
		return v.Text, nil
	}
	return nil, nil
}

// Observation is a vital sign, lab result or other measurement.
type Observation struct {
	ID            string           `json:"id" yaml:"id"`
	Code          string           `json:"code" yaml:"code"`
	Display       string           `json:"display" yaml:"display"`
	Value         ObservationValue `json:"value" yaml:"value"`
	Unit          string           `json:"unit" yaml:"unit"`
	EffectiveDate string           `json:"effective_date" yaml:"effective_date"`
	Category      string           `json:"category" yaml:"category"`
	EncounterRef  string           `json:"encounter_ref,omitempty" yaml:"encounter_ref,omitempty"`
}

// Procedure is a performed procedure.
type Procedure struct {
	ID            string `json:"id" yaml:"id"`
	Code          string `json:"code" yaml:"code"`
	Display       string `json:"display" yaml:"display"`
	PerformedDate string `json:"performed_date" yaml:"performed_date"`
	Status        string `json:"status" yaml:"status"`
	ReasonCode    string `json:"reason_code" yaml:"reason_code"`
	ReasonDisplay string `json:"reason_display" yaml:"reason_display"`
	EncounterRef  string `json:"encounter_ref,omitempty" yaml:"encounter_ref,omitempty"`
}

// Immunization is an administered (or refused) vaccine.
type Immunization struct {
	ID             string `json:"id" yaml:"id"`
	VaccineCode    string `json:"vaccine_code" yaml:"vaccine_code"`
	VaccineDisplay string `json:"vaccine_display" yaml:"vaccine_display"`
	OccurrenceDate string `json:"occurrence_date" yaml:"occurrence_date"`
	Status         string `json:"status" yaml:"status"`
	EncounterRef   string `json:"encounter_ref,omitempty" yaml:"encounter_ref,omitempty"`
	DoseNumber     *int   `json:"dose_number" yaml:"dose_number"`
	Series         string `json:"series,omitempty" yaml:"series,omitempty"`
}

// DiagnosticReport carries a report and its narrative text.
type DiagnosticReport struct {
	ID            string `json:"id" yaml:"id"`
	Code          string `json:"code" yaml:"code"`
	Display       string `json:"display" yaml:"display"`
	EffectiveDate string `json:"effective_date" yaml:"effective_date"`
	Conclusion    string `json:"conclusion" yaml:"conclusion"`
	PresentedForm string `json:"presented_form" yaml:"presented_form"`
	EncounterRef  string `json:"encounter_ref,omitempty" yaml:"encounter_ref,omitempty"`
}

// EncounterLinks lists, per resource kind, the ids of resources whose
// encounter reference resolved to the owning encounter. The lists are
// filled once, after the whole bundle has been read.
type EncounterLinks struct {
	Conditions        []string `json:"conditions" yaml:"conditions"`
	Medications       []string `json:"medications" yaml:"medications"`
	Observations      []string `json:"observations" yaml:"observations"`
	Procedures        []string `json:"procedures" yaml:"procedures"`
	Immunizations     []string `json:"immunizations" yaml:"immunizations"`
	DiagnosticReports []string `json:"diagnostic_reports" yaml:"diagnostic_reports"`
}

func newEncounterLinks() EncounterLinks {
	return EncounterLinks{
		Conditions:        []string{},
		Medications:       []string{},
		Observations:      []string{},
		Procedures:        []string{},
		Immunizations:     []string{},
		DiagnosticReports: []string{},
	}
}

// Encounter is a healthcare visit.
type Encounter struct {
	ID              string  `json:"id" yaml:"id"`
	TypeCode        string  `json:"type_code" yaml:"type_code"`
	TypeDisplay     string  `json:"type_display" yaml:"type_display"`
	ClassCode       string  `json:"class_code" yaml:"class_code"`
	ClassDisplay    string  `json:"class_display" yaml:"class_display"`
	StartDate       string  `json:"start_date" yaml:"start_date"`
	EndDate         *string `json:"end_date" yaml:"end_date"`
	ReasonCode      string  `json:"reason_code" yaml:"reason_code"`
	ReasonDisplay   string  `json:"reason_display" yaml:"reason_display"`
	ServiceProvider string  `json:"service_provider" yaml:"service_provider"`

	EncounterLinks `yaml:",inline"`
}

// LinkCount returns the total number of linked resources.
func (e *Encounter) LinkCount() int {
	l := &e.EncounterLinks
	return len(l.Conditions) + len(l.Medications) + len(l.Observations) +
		len(l.Procedures) + len(l.Immunizations) + len(l.DiagnosticReports)
}

// EncounterID returns the encounter id a raw reference points at, or ""
// when there is no reference.
func EncounterID(ref string) string {
	if strings.TrimSpace(ref) == "" {
		return ""
	}
	return fhir.ReferenceID(ref)
}
