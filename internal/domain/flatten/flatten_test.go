package flatten

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/ehr/fhirextract/internal/domain/record"
)

var asOf = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const bundle = `{"resourceType": "Bundle", "entry": [
	{"resource": {"resourceType": "Patient", "id": "p1", "name": [{"given": ["Ana"], "family": "Diaz"}],
		"gender": "female", "birthDate": "1975-06-15"}},
	{"resource": {"resourceType": "Encounter", "id": "e1", "period": {"start": "2020-05-01T10:00:00Z", "end": "2020-05-01T11:00:00Z"}}},
	{"resource": {"resourceType": "Condition", "id": "c1", "clinicalStatus": {"coding": [{"code": "active"}]},
		"onsetDateTime": "2020-05-01", "encounter": {"reference": "urn:uuid:e1"}}},
	{"resource": {"resourceType": "Condition", "id": "c2", "clinicalStatus": {"coding": [{"code": "resolved"}]},
		"abatementDateTime": "2021-01-01"}},
	{"resource": {"resourceType": "MedicationRequest", "id": "m1", "status": "active", "encounter": {"reference": "Encounter/e1"}}},
	{"resource": {"resourceType": "Observation", "id": "o1", "valueQuantity": {"value": 98.6, "unit": "degF"},
		"encounter": {"reference": "urn:uuid:e1"}}},
	{"resource": {"resourceType": "Observation", "id": "o2", "valueString": "clear"}},
	{"resource": {"resourceType": "Immunization", "id": "i1", "protocolApplied": [{"doseNumberPositiveInt": 1}]}},
	{"resource": {"resourceType": "DiagnosticReport", "id": "d1", "encounter": {"reference": "urn:uuid:e1"}}}
]}`

func extract(t *testing.T) *record.PatientRecord {
	t.Helper()
	rec, err := record.Extract([]byte(bundle))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return rec
}

func TestFlatten_Patient(t *testing.T) {
	rs := Flatten(extract(t), asOf)
	if len(rs.Patients) != 1 {
		t.Fatalf("patients = %d, want 1", len(rs.Patients))
	}
	p := rs.Patients[0]
	if p.PatientID != "p1" || p.Name != "Ana Diaz" || p.Age != 48 {
		t.Errorf("patient row = %+v", p)
	}
	if p.TotalConditions != 2 || p.ActiveConditions != 1 || p.CurrentMedications != 1 || p.TotalObservations != 2 {
		t.Errorf("patient totals = %+v", p)
	}
}

func TestFlatten_KindRows(t *testing.T) {
	rs := Flatten(extract(t), asOf)

	if got := rs.Encounters[0]; got.LinkedConditions != 1 || got.LinkedObservations != 1 || got.LinkedDiagnosticReports != 1 || got.EndDate == nil {
		t.Errorf("encounter row = %+v", got)
	}
	if c := rs.Conditions[0]; !c.IsActive || c.EncounterID != "e1" || c.PatientID != "p1" {
		t.Errorf("condition c1 row = %+v", c)
	}
	if c := rs.Conditions[1]; c.IsActive || c.AbatementDate == nil || c.EncounterID != "" {
		t.Errorf("condition c2 row = %+v", c)
	}
	if m := rs.Medications[0]; !m.IsCurrent || m.EncounterID != "e1" {
		t.Errorf("medication row = %+v", m)
	}

	o1, o2 := rs.Observations[0], rs.Observations[1]
	if o1.ValueKind != "quantity" || o1.Value != "98.6" || o1.ValueNumeric == nil || *o1.ValueNumeric != 98.6 {
		t.Errorf("o1 row = %+v", o1)
	}
	if o2.ValueKind != "text" || o2.Value != "clear" || o2.ValueNumeric != nil {
		t.Errorf("o2 row = %+v", o2)
	}
	if i := rs.Immunizations[0]; i.DoseNumber == nil || *i.DoseNumber != 1 {
		t.Errorf("immunization row = %+v", i)
	}
	if len(rs.Procedures) != 0 {
		t.Errorf("procedures = %d, want 0", len(rs.Procedures))
	}
}

func TestFlatten_Deterministic(t *testing.T) {
	a, _ := json.Marshal(Flatten(extract(t), asOf))
	b, _ := json.Marshal(Flatten(extract(t), asOf))
	if string(a) != string(b) {
		t.Errorf("flattened output differs between runs:\n%s\n%s", a, b)
	}
}

func TestRowSet_Counts(t *testing.T) {
	rs := Flatten(extract(t), asOf)

	want := map[Dataset]int{
		DatasetPatients:          1,
		DatasetEncounters:        1,
		DatasetConditions:        2,
		DatasetMedications:       1,
		DatasetObservations:      2,
		DatasetProcedures:        0,
		DatasetImmunizations:     1,
		DatasetDiagnosticReports: 1,
	}
	if got := rs.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts() = %v, want %v", got, want)
	}
	if rows := rs.Rows(DatasetProcedures); rows == nil || len(rows) != 0 {
		t.Errorf("Rows(procedures) = %v", rows)
	}
	if rows := rs.Rows(Dataset("bogus")); rows == nil || len(rows) != 0 {
		t.Errorf("Rows(bogus) = %v", rows)
	}
}

func TestFlatten_OverflowingQuantity(t *testing.T) {
	rec, err := record.Extract([]byte(`{"entry": [
		{"resource": {"resourceType": "Patient", "id": "p1"}},
		{"resource": {"resourceType": "Observation", "id": "big", "valueQuantity": {"value": 1e400, "unit": "mg"}}}
	]}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	rs := Flatten(rec, asOf)
	if len(rs.Observations) != 1 {
		t.Fatalf("observations = %d, want 1", len(rs.Observations))
	}
	row := rs.Observations[0]
	if row.ValueNumeric != nil {
		t.Errorf("ValueNumeric = %v, want nil", *row.ValueNumeric)
	}
	if row.ValueKind != "quantity" || row.Value == "" {
		t.Errorf("ValueKind = %q Value = %q", row.ValueKind, row.Value)
	}
	if _, err := json.Marshal(rs.Rows(DatasetObservations)); err != nil {
		t.Errorf("marshal rows: %v", err)
	}
}

func TestColumnsMatchValues(t *testing.T) {
	rs := Flatten(extract(t), asOf)
	for _, d := range Datasets {
		cols := Columns(d)
		if len(cols) == 0 {
			t.Errorf("%s has no columns", d)
		}
		if cols[0] != "patient_id" {
			t.Errorf("%s first column = %q", d, cols[0])
		}
		for _, row := range rs.Rows(d) {
			if n := len(Values(row)); n != len(cols) {
				t.Errorf("%s: %d values for %d columns", d, n, len(cols))
			}
		}
	}
}

func TestStrings(t *testing.T) {
	f := 1.5
	row := ObservationRow{PatientID: "p", ObservationID: "o", ValueKind: "quantity", Value: "1.50", ValueNumeric: &f}
	got := Strings(row)
	want := []string{"p", "o", "", "", "", "quantity", "1.50", "1.5", "", "", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Strings() = %q, want %q", got, want)
	}

	c := Strings(&ConditionRow{IsActive: true})
	if c[7] != "true" || c[6] != "" {
		t.Errorf("condition strings = %q", c)
	}
}

func TestParseDataset(t *testing.T) {
	if d, ok := ParseDataset("diagnostic_reports"); !ok || d != DatasetDiagnosticReports {
		t.Errorf("ParseDataset(diagnostic_reports) = %q, %v", d, ok)
	}
	if _, ok := ParseDataset("Patients"); ok {
		t.Error("dataset names are case sensitive")
	}
}

type recordingSink struct {
	tables []string
	rows   map[string]int
}

func (s *recordingSink) WriteRows(table string, rows []any) error {
	s.tables = append(s.tables, table)
	s.rows[table] += len(rows)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func TestRowSet_WriteTo(t *testing.T) {
	sink := &recordingSink{rows: map[string]int{}}
	if err := Flatten(extract(t), asOf).WriteTo(sink); err != nil {
		t.Fatal(err)
	}
	if len(sink.tables) != len(Datasets) || sink.tables[0] != "patients" {
		t.Errorf("tables = %v", sink.tables)
	}
	if sink.rows["observations"] != 2 || sink.rows["procedures"] != 0 {
		t.Errorf("rows = %v", sink.rows)
	}
}

func TestSchema(t *testing.T) {
	var s Schema
	if cols := s.Columns("immunizations"); cols[len(cols)-1] != "encounter_id" {
		t.Errorf("Columns = %v", cols)
	}
	if _, ok := s.Prototype("patients").(*PatientRow); !ok {
		t.Error("Prototype(patients) is not *PatientRow")
	}
}
