package flatten

// Dataset names one flattened table. The name doubles as the file stem and
// the Postgres table name.
type Dataset string

const (
	DatasetPatients          Dataset = "patients"
	DatasetEncounters        Dataset = "encounters"
	DatasetConditions        Dataset = "conditions"
	DatasetMedications       Dataset = "medications"
	DatasetObservations      Dataset = "observations"
	DatasetProcedures        Dataset = "procedures"
	DatasetImmunizations     Dataset = "immunizations"
	DatasetDiagnosticReports Dataset = "diagnostic_reports"
)

// Datasets lists every dataset in output order.
var Datasets = []Dataset{
	DatasetPatients,
	DatasetEncounters,
	DatasetConditions,
	DatasetMedications,
	DatasetObservations,
	DatasetProcedures,
	DatasetImmunizations,
	DatasetDiagnosticReports,
}

// ParseDataset returns the dataset called name.
func ParseDataset(name string) (Dataset, bool) {
	for _, d := range Datasets {
		if string(d) == name {
			return d, true
		}
	}
	return "", false
}

type PatientRow struct {
	PatientID              string `json:"patient_id" parquet:"patient_id" db:"patient_id"`
	Name                   string `json:"name" parquet:"name" db:"name"`
	BirthDate              string `json:"birth_date" parquet:"birth_date" db:"birth_date"`
	Gender                 string `json:"gender" parquet:"gender" db:"gender"`
	Race                   string `json:"race" parquet:"race" db:"race"`
	Ethnicity              string `json:"ethnicity" parquet:"ethnicity" db:"ethnicity"`
	MaritalStatus          string `json:"marital_status" parquet:"marital_status" db:"marital_status"`
	Address                string `json:"address" parquet:"address" db:"address"`
	Phone                  string `json:"phone" parquet:"phone" db:"phone"`
	Age                    int    `json:"age" parquet:"age" db:"age"`
	TotalEncounters        int    `json:"total_encounters" parquet:"total_encounters" db:"total_encounters"`
	TotalConditions        int    `json:"total_conditions" parquet:"total_conditions" db:"total_conditions"`
	ActiveConditions       int    `json:"active_conditions" parquet:"active_conditions" db:"active_conditions"`
	CurrentMedications     int    `json:"current_medications" parquet:"current_medications" db:"current_medications"`
	TotalObservations      int    `json:"total_observations" parquet:"total_observations" db:"total_observations"`
	TotalProcedures        int    `json:"total_procedures" parquet:"total_procedures" db:"total_procedures"`
	TotalImmunizations     int    `json:"total_immunizations" parquet:"total_immunizations" db:"total_immunizations"`
	TotalDiagnosticReports int    `json:"total_diagnostic_reports" parquet:"total_diagnostic_reports" db:"total_diagnostic_reports"`
}

type EncounterRow struct {
	PatientID               string  `json:"patient_id" parquet:"patient_id" db:"patient_id"`
	EncounterID             string  `json:"encounter_id" parquet:"encounter_id" db:"encounter_id"`
	TypeCode                string  `json:"type_code" parquet:"type_code" db:"type_code"`
	TypeDisplay             string  `json:"type_display" parquet:"type_display" db:"type_display"`
	ClassCode               string  `json:"class_code" parquet:"class_code" db:"class_code"`
	ClassDisplay            string  `json:"class_display" parquet:"class_display" db:"class_display"`
	StartDate               string  `json:"start_date" parquet:"start_date" db:"start_date"`
	EndDate                 *string `json:"end_date" parquet:"end_date,optional" db:"end_date"`
	ReasonCode              string  `json:"reason_code" parquet:"reason_code" db:"reason_code"`
	ReasonDisplay           string  `json:"reason_display" parquet:"reason_display" db:"reason_display"`
	ServiceProvider         string  `json:"service_provider" parquet:"service_provider" db:"service_provider"`
	LinkedConditions        int     `json:"linked_conditions" parquet:"linked_conditions" db:"linked_conditions"`
	LinkedMedications       int     `json:"linked_medications" parquet:"linked_medications" db:"linked_medications"`
	LinkedObservations      int     `json:"linked_observations" parquet:"linked_observations" db:"linked_observations"`
	LinkedProcedures        int     `json:"linked_procedures" parquet:"linked_procedures" db:"linked_procedures"`
	LinkedImmunizations     int     `json:"linked_immunizations" parquet:"linked_immunizations" db:"linked_immunizations"`
	LinkedDiagnosticReports int     `json:"linked_diagnostic_reports" parquet:"linked_diagnostic_reports" db:"linked_diagnostic_reports"`
}

type ConditionRow struct {
	PatientID      string  `json:"patient_id" parquet:"patient_id" db:"patient_id"`
	ConditionID    string  `json:"condition_id" parquet:"condition_id" db:"condition_id"`
	Code           string  `json:"code" parquet:"code" db:"code"`
	Display        string  `json:"display" parquet:"display" db:"display"`
	ClinicalStatus string  `json:"clinical_status" parquet:"clinical_status" db:"clinical_status"`
	OnsetDate      string  `json:"onset_date" parquet:"onset_date" db:"onset_date"`
	AbatementDate  *string `json:"abatement_date" parquet:"abatement_date,optional" db:"abatement_date"`
	IsActive       bool    `json:"is_active" parquet:"is_active" db:"is_active"`
	EncounterID    string  `json:"encounter_id" parquet:"encounter_id" db:"encounter_id"`
}

type MedicationRow struct {
	PatientID     string `json:"patient_id" parquet:"patient_id" db:"patient_id"`
	MedicationID  string `json:"medication_id" parquet:"medication_id" db:"medication_id"`
	Code          string `json:"code" parquet:"code" db:"code"`
	Display       string `json:"display" parquet:"display" db:"display"`
	Status        string `json:"status" parquet:"status" db:"status"`
	AuthoredOn    string `json:"authored_on" parquet:"authored_on" db:"authored_on"`
	DosageText    string `json:"dosage_text" parquet:"dosage_text" db:"dosage_text"`
	ReasonCode    string `json:"reason_code" parquet:"reason_code" db:"reason_code"`
	ReasonDisplay string `json:"reason_display" parquet:"reason_display" db:"reason_display"`
	IsCurrent     bool   `json:"is_current" parquet:"is_current" db:"is_current"`
	EncounterID   string `json:"encounter_id" parquet:"encounter_id" db:"encounter_id"`
}

// ObservationRow carries the value twice: Value is the exact text form and
// ValueNumeric the float form of quantities, for numeric analysis.
type ObservationRow struct {
	PatientID     string   `json:"patient_id" parquet:"patient_id" db:"patient_id"`
	ObservationID string   `json:"observation_id" parquet:"observation_id" db:"observation_id"`
	Code          string   `json:"code" parquet:"code" db:"code"`
	Display       string   `json:"display" parquet:"display" db:"display"`
	Category      string   `json:"category" parquet:"category" db:"category"`
	ValueKind     string   `json:"value_kind" parquet:"value_kind" db:"value_kind"`
	Value         string   `json:"value" parquet:"value" db:"value"`
	ValueNumeric  *float64 `json:"value_numeric" parquet:"value_numeric,optional" db:"value_numeric"`
	Unit          string   `json:"unit" parquet:"unit" db:"unit"`
	EffectiveDate string   `json:"effective_date" parquet:"effective_date" db:"effective_date"`
	EncounterID   string   `json:"encounter_id" parquet:"encounter_id" db:"encounter_id"`
}

type ProcedureRow struct {
	PatientID     string `json:"patient_id" parquet:"patient_id" db:"patient_id"`
	ProcedureID   string `json:"procedure_id" parquet:"procedure_id" db:"procedure_id"`
	Code          string `json:"code" parquet:"code" db:"code"`
	Display       string `json:"display" parquet:"display" db:"display"`
	Status        string `json:"status" parquet:"status" db:"status"`
	PerformedDate string `json:"performed_date" parquet:"performed_date" db:"performed_date"`
	ReasonCode    string `json:"reason_code" parquet:"reason_code" db:"reason_code"`
	ReasonDisplay string `json:"reason_display" parquet:"reason_display" db:"reason_display"`
	EncounterID   string `json:"encounter_id" parquet:"encounter_id" db:"encounter_id"`
}

type ImmunizationRow struct {
	PatientID      string `json:"patient_id" parquet:"patient_id" db:"patient_id"`
	ImmunizationID string `json:"immunization_id" parquet:"immunization_id" db:"immunization_id"`
	VaccineCode    string `json:"vaccine_code" parquet:"vaccine_code" db:"vaccine_code"`
	VaccineDisplay string `json:"vaccine_display" parquet:"vaccine_display" db:"vaccine_display"`
	Status         string `json:"status" parquet:"status" db:"status"`
	OccurrenceDate string `json:"occurrence_date" parquet:"occurrence_date" db:"occurrence_date"`
	DoseNumber     *int   `json:"dose_number" parquet:"dose_number,optional" db:"dose_number"`
	Series         string `json:"series" parquet:"series" db:"series"`
	EncounterID    string `json:"encounter_id" parquet:"encounter_id" db:"encounter_id"`
}

type DiagnosticReportRow struct {
	PatientID     string `json:"patient_id" parquet:"patient_id" db:"patient_id"`
	ReportID      string `json:"report_id" parquet:"report_id" db:"report_id"`
	Code          string `json:"code" parquet:"code" db:"code"`
	Display       string `json:"display" parquet:"display" db:"display"`
	EffectiveDate string `json:"effective_date" parquet:"effective_date" db:"effective_date"`
	Conclusion    string `json:"conclusion" parquet:"conclusion" db:"conclusion"`
	PresentedForm string `json:"presented_form" parquet:"presented_form" db:"presented_form"`
	EncounterID   string `json:"encounter_id" parquet:"encounter_id" db:"encounter_id"`
}
