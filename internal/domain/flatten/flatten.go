package flatten

import (
	"math"
	"time"

	"github.com/ehr/fhirextract/internal/domain/record"
)

// RowSet holds the rows flattened from one record, in the order its
// resources were seen.
type RowSet struct {
	Patients          []PatientRow          `json:"patients"`
	Encounters        []EncounterRow        `json:"encounters"`
	Conditions        []ConditionRow        `json:"conditions"`
	Medications       []MedicationRow       `json:"medications"`
	Observations      []ObservationRow      `json:"observations"`
	Procedures        []ProcedureRow        `json:"procedures"`
	Immunizations     []ImmunizationRow     `json:"immunizations"`
	DiagnosticReports []DiagnosticReportRow `json:"diagnostic_reports"`
}

// Flatten turns one record into rows. Ages are computed on asOf.
func Flatten(rec *record.PatientRecord, asOf time.Time) *RowSet {
	pid := rec.Patient.ID
	counts := rec.Counts()
	rs := &RowSet{
		Patients: []PatientRow{{
			PatientID:              pid,
			Name:                   rec.Patient.Name,
			BirthDate:              rec.Patient.BirthDate,
			Gender:                 rec.Patient.Gender,
			Race:                   rec.Patient.Race,
			Ethnicity:              rec.Patient.Ethnicity,
			MaritalStatus:          rec.Patient.MaritalStatus,
			Address:                rec.Patient.Address,
			Phone:                  rec.Patient.Phone,
			Age:                    rec.Patient.Age(asOf),
			TotalEncounters:        counts[record.KindEncounter],
			TotalConditions:        counts[record.KindCondition],
			ActiveConditions:       len(rec.ActiveConditions()),
			CurrentMedications:     len(rec.CurrentMedications()),
			TotalObservations:      counts[record.KindObservation],
			TotalProcedures:        counts[record.KindProcedure],
			TotalImmunizations:     counts[record.KindImmunization],
			TotalDiagnosticReports: counts[record.KindDiagnosticReport],
		}},
	}

	for _, e := range rec.Encounters.All() {
		rs.Encounters = append(rs.Encounters, EncounterRow{
			PatientID:               pid,
			EncounterID:             e.ID,
			TypeCode:                e.TypeCode,
			TypeDisplay:             e.TypeDisplay,
			ClassCode:               e.ClassCode,
			ClassDisplay:            e.ClassDisplay,
			StartDate:               e.StartDate,
			EndDate:                 e.EndDate,
			ReasonCode:              e.ReasonCode,
			ReasonDisplay:           e.ReasonDisplay,
			ServiceProvider:         e.ServiceProvider,
			LinkedConditions:        len(e.Conditions),
			LinkedMedications:       len(e.Medications),
			LinkedObservations:      len(e.Observations),
			LinkedProcedures:        len(e.Procedures),
			LinkedImmunizations:     len(e.Immunizations),
			LinkedDiagnosticReports: len(e.DiagnosticReports),
		})
	}
	for _, c := range rec.Conditions.All() {
		rs.Conditions = append(rs.Conditions, ConditionRow{
			PatientID:      pid,
			ConditionID:    c.ID,
			Code:           c.Code,
			Display:        c.Display,
			ClinicalStatus: c.ClinicalStatus,
			OnsetDate:      c.OnsetDate,
			AbatementDate:  c.AbatementDate,
			IsActive:       c.IsActive(),
			EncounterID:    record.EncounterID(c.EncounterRef),
		})
	}
	for _, m := range rec.Medications.All() {
		rs.Medications = append(rs.Medications, MedicationRow{
			PatientID:     pid,
			MedicationID:  m.ID,
			Code:          m.Code,
			Display:       m.Display,
			Status:        m.Status,
			AuthoredOn:    m.AuthoredOn,
			DosageText:    m.DosageText,
			ReasonCode:    m.ReasonCode,
			ReasonDisplay: m.ReasonDisplay,
			IsCurrent:     m.IsCurrent(),
			EncounterID:   record.EncounterID(m.EncounterRef),
		})
	}
	for _, o := range rec.Observations.All() {
		row := ObservationRow{
			PatientID:     pid,
			ObservationID: o.ID,
			Code:          o.Code,
			Display:       o.Display,
			Category:      o.Category,
			ValueKind:     o.Value.Kind.String(),
			Value:         o.Value.String(),
			Unit:          o.Unit,
			EffectiveDate: o.EffectiveDate,
			EncounterID:   record.EncounterID(o.EncounterRef),
		}
		if o.Value.Kind == record.ValueQuantity {
			// Quantities beyond float64 range keep only their text form.
			if f := o.Value.Quantity.InexactFloat64(); !math.IsInf(f, 0) && !math.IsNaN(f) {
				row.ValueNumeric = &f
			}
		}
		rs.Observations = append(rs.Observations, row)
	}
	for _, p := range rec.Procedures.All() {
		rs.Procedures = append(rs.Procedures, ProcedureRow{
			PatientID:     pid,
			ProcedureID:   p.ID,
			Code:          p.Code,
			Display:       p.Display,
			Status:        p.Status,
			PerformedDate: p.PerformedDate,
			ReasonCode:    p.ReasonCode,
			ReasonDisplay: p.ReasonDisplay,
			EncounterID:   record.EncounterID(p.EncounterRef),
		})
	}
	for _, i := range rec.Immunizations.All() {
		rs.Immunizations = append(rs.Immunizations, ImmunizationRow{
			PatientID:      pid,
			ImmunizationID: i.ID,
			VaccineCode:    i.VaccineCode,
			VaccineDisplay: i.VaccineDisplay,
			Status:         i.Status,
			OccurrenceDate: i.OccurrenceDate,
			DoseNumber:     i.DoseNumber,
			Series:         i.Series,
			EncounterID:    record.EncounterID(i.EncounterRef),
		})
	}
	for _, r := range rec.DiagnosticReports.All() {
		rs.DiagnosticReports = append(rs.DiagnosticReports, DiagnosticReportRow{
			PatientID:     pid,
			ReportID:      r.ID,
			Code:          r.Code,
			Display:       r.Display,
			EffectiveDate: r.EffectiveDate,
			Conclusion:    r.Conclusion,
			PresentedForm: r.PresentedForm,
			EncounterID:   record.EncounterID(r.EncounterRef),
		})
	}
	return rs
}

// Len returns the number of rows in dataset d.
func (rs *RowSet) Len(d Dataset) int {
	switch d {
	case DatasetPatients:
		return len(rs.Patients)
	case DatasetEncounters:
		return len(rs.Encounters)
	case DatasetConditions:
		return len(rs.Conditions)
	case DatasetMedications:
		return len(rs.Medications)
	case DatasetObservations:
		return len(rs.Observations)
	case DatasetProcedures:
		return len(rs.Procedures)
	case DatasetImmunizations:
		return len(rs.Immunizations)
	case DatasetDiagnosticReports:
		return len(rs.DiagnosticReports)
	}
	return 0
}

// Counts returns the row count of every dataset.
func (rs *RowSet) Counts() map[Dataset]int {
	out := make(map[Dataset]int, len(Datasets))
	for _, d := range Datasets {
		out[d] = rs.Len(d)
	}
	return out
}

// Rows returns the rows of dataset d as values of its row type. The result
// is never nil.
func (rs *RowSet) Rows(d Dataset) []any {
	switch d {
	case DatasetPatients:
		return boxed(rs.Patients)
	case DatasetEncounters:
		return boxed(rs.Encounters)
	case DatasetConditions:
		return boxed(rs.Conditions)
	case DatasetMedications:
		return boxed(rs.Medications)
	case DatasetObservations:
		return boxed(rs.Observations)
	case DatasetProcedures:
		return boxed(rs.Procedures)
	case DatasetImmunizations:
		return boxed(rs.Immunizations)
	case DatasetDiagnosticReports:
		return boxed(rs.DiagnosticReports)
	}
	return []any{}
}

func boxed[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// RowType returns a pointer to the zero row of dataset d, for schema
// derivation.
func RowType(d Dataset) any {
	switch d {
	case DatasetPatients:
		return new(PatientRow)
	case DatasetEncounters:
		return new(EncounterRow)
	case DatasetConditions:
		return new(ConditionRow)
	case DatasetMedications:
		return new(MedicationRow)
	case DatasetObservations:
		return new(ObservationRow)
	case DatasetProcedures:
		return new(ProcedureRow)
	case DatasetImmunizations:
		return new(ImmunizationRow)
	case DatasetDiagnosticReports:
		return new(DiagnosticReportRow)
	}
	return nil
}
