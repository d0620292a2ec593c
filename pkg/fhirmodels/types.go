package fhirmodels

// Resource type names as they appear in resourceType.
const (
	ResourcePatient           = "Patient"
	ResourceEncounter         = "Encounter"
	ResourceCondition         = "Condition"
	ResourceMedicationRequest = "MedicationRequest"
	ResourceObservation       = "Observation"
	ResourceProcedure         = "Procedure"
	ResourceImmunization      = "Immunization"
	ResourceDiagnosticReport  = "DiagnosticReport"
)

// ConditionClinicalStatus codes.
const (
	ConditionActive     = "active"
	ConditionRecurrence = "recurrence"
	ConditionRelapse    = "relapse"
	ConditionInactive   = "inactive"
	ConditionRemission  = "remission"
	ConditionResolved   = "resolved"
)

// MedicationRequest status codes.
const (
	MedicationRequestActive    = "active"
	MedicationRequestOnHold    = "on-hold"
	MedicationRequestCancelled = "cancelled"
	MedicationRequestCompleted = "completed"
	MedicationRequestStopped   = "stopped"
	MedicationRequestDraft     = "draft"
)
