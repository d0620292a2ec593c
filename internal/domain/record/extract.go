package record

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ehr/fhirextract/internal/platform/fhir"
)

// The extractors below map one raw resource to one flat entity. They never
// fail: any missing or mistyped field resolves to its default.

// firstCoding returns the first coding of the CodeableConcept under key.
func firstCoding(res fhir.Node, key string) fhir.Node {
	return res.Get(key).First("coding")
}

// pointOrPeriod prefers the point-in-time field and falls back to the
// start of the period field.
func pointOrPeriod(res fhir.Node, pointKey, periodKey string) string {
	if s := res.Get(pointKey).Str(); s != "" {
		return s
	}
	return res.Path(periodKey, "start").Str()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func encounterRef(res fhir.Node) string {
	return res.Path("encounter", "reference").Str()
}

// reason resolves reasonCode / reasonReference into a code and label. A coded
// reason wins; a bare reasonReference only yields the generic label.
func reason(res fhir.Node) (code, display string) {
	if c := res.First("reasonCode").First("coding"); c.Exists() {
		code = c.Get("code").Str()
		display = c.Get("display").Str()
		if display == "" {
			display = res.First("reasonCode").Get("text").Str()
		}
		return code, display
	}
	if res.Get("reasonReference").Len() > 0 {
		return "", ReasonSeeConditions
	}
	return "", ""
}

// ExtractPatient maps a Patient resource.
func ExtractPatient(res fhir.Node) Patient {
	name := res.First("name")
	var given []string
	for _, g := range name.Get("given").Items() {
		if s := g.Str(); s != "" {
			given = append(given, s)
		}
	}
	fullName := strings.TrimSpace(strings.Join(given, " ") + " " + name.Get("family").Str())

	addr := res.First("address")
	var lines []string
	for _, l := range addr.Get("line").Items() {
		lines = append(lines, l.Str())
	}
	fullAddress := strings.Trim(
		strings.Join(lines, ", ")+", "+addr.Get("city").Str()+", "+addr.Get("state").Str()+" "+addr.Get("postalCode").Str(),
		", ",
	)

	var phone string
	for _, tc := range res.Get("telecom").Items() {
		if tc.Get("system").Str() == "phone" {
			phone = tc.Get("value").Str()
			break
		}
	}

	var race, ethnicity string
	for _, ext := range res.Get("extension").Items() {
		url := ext.Get("url").Str()
		switch {
		case strings.Contains(url, "race"):
			race = extensionText(ext)
		case strings.Contains(url, "ethnicity"):
			ethnicity = extensionText(ext)
		}
	}

	return Patient{
		ID:            res.Get("id").Str(),
		Name:          fullName,
		BirthDate:     res.Get("birthDate").Str(),
		Gender:        res.Get("gender").Str(),
		Race:          race,
		Ethnicity:     ethnicity,
		MaritalStatus: res.Path("maritalStatus", "text").Str(),
		Address:       fullAddress,
		Phone:         phone,
	}
}

// extensionText returns the valueString of the "text" sub-extension used by
// the US Core race and ethnicity extensions.
func extensionText(ext fhir.Node) string {
	for _, sub := range ext.Get("extension").Items() {
		if sub.Get("url").Str() == "text" {
			return sub.Get("valueString").Str()
		}
	}
	return ""
}

// ExtractCondition maps a Condition resource.
func ExtractCondition(res fhir.Node) Condition {
	code := firstCoding(res, "code")
	return Condition{
		ID:             res.Get("id").Str(),
		Code:           code.Get("code").Str(),
		Display:        code.Get("display").Str(),
		ClinicalStatus: firstCoding(res, "clinicalStatus").Get("code").Str(),
		OnsetDate:      pointOrPeriod(res, "onsetDateTime", "onsetPeriod"),
		AbatementDate:  optional(pointOrPeriod(res, "abatementDateTime", "abatementPeriod")),
		EncounterRef:   encounterRef(res),
	}
}

// ExtractMedication maps a MedicationRequest resource.
func ExtractMedication(res fhir.Node) Medication {
	code := firstCoding(res, "medicationCodeableConcept")
	reasonCode, reasonDisplay := reason(res)
	return Medication{
		ID:            res.Get("id").Str(),
		Code:          code.Get("code").Str(),
		Display:       code.Get("display").Str(),
		Status:        res.Get("status").Str(),
		AuthoredOn:    res.Get("authoredOn").Str(),
		DosageText:    res.First("dosageInstruction").Get("text").Str(),
		ReasonCode:    reasonCode,
		ReasonDisplay: reasonDisplay,
		EncounterRef:  encounterRef(res),
	}
}

// ExtractObservation maps an Observation resource.
func ExtractObservation(res fhir.Node) Observation {
	code := firstCoding(res, "code")
	value, unit := observationValue(res)
	return Observation{
		ID:            res.Get("id").Str(),
		Code:          code.Get("code").Str(),
		Display:       code.Get("display").Str(),
		Value:         value,
		Unit:          unit,
		EffectiveDate: pointOrPeriod(res, "effectiveDateTime", "effectivePeriod"),
		Category:      res.First("category").First("coding").Get("code").Str(),
		EncounterRef:  encounterRef(res),
	}
}

func observationValue(res fhir.Node) (ObservationValue, string) {
	switch {
	case res.Get("valueQuantity").IsObject():
		q := res.Get("valueQuantity")
		unit := q.Get("unit").Str()
		num, ok := q.Get("value").Number()
		if !ok {
			return ObservationValue{}, unit
		}
		d, err := decimal.NewFromString(num.String())
		if err != nil {
			return ObservationValue{}, unit
		}
		return QuantityValue(d), unit
	case res.Get("valueCodeableConcept").IsObject():
		cc := res.Get("valueCodeableConcept")
		return CodedValue(cc.Get("text").StrOr(cc.First("coding").Get("display").Str())), ""
	case res.Has("valueString"):
		return TextValue(res.Get("valueString").Str()), ""
	case res.Get("valueBoolean").Exists():
		return TextValue(res.Get("valueBoolean").Text()), ""
	case res.Get("valueInteger").Exists():
		return TextValue(res.Get("valueInteger").Text()), ""
	}
	return ObservationValue{}, ""
}

// ExtractProcedure maps a Procedure resource.
func ExtractProcedure(res fhir.Node) Procedure {
	code := firstCoding(res, "code")
	reasonCode, reasonDisplay := reason(res)
	return Procedure{
		ID:            res.Get("id").Str(),
		Code:          code.Get("code").Str(),
		Display:       code.Get("display").Str(),
		PerformedDate: pointOrPeriod(res, "performedDateTime", "performedPeriod"),
		Status:        res.Get("status").Str(),
		ReasonCode:    reasonCode,
		ReasonDisplay: reasonDisplay,
		EncounterRef:  encounterRef(res),
	}
}

// ExtractImmunization maps an Immunization resource.
func ExtractImmunization(res fhir.Node) Immunization {
	code := firstCoding(res, "vaccineCode")
	imm := Immunization{
		ID:             res.Get("id").Str(),
		VaccineCode:    code.Get("code").Str(),
		VaccineDisplay: code.Get("display").StrOr(res.Path("vaccineCode", "text").Str()),
		OccurrenceDate: res.Get("occurrenceDateTime").Str(),
		Status:         res.Get("status").Str(),
		EncounterRef:   encounterRef(res),
	}
	if protocol := res.First("protocolApplied"); protocol.Exists() {
		if n, ok := protocol.Get("doseNumberPositiveInt").Int(); ok {
			imm.DoseNumber = &n
		}
		imm.Series = protocol.Get("series").Str()
	}
	return imm
}

// ExtractDiagnosticReport maps a DiagnosticReport resource, decoding its
// attached narrative forms.
func ExtractDiagnosticReport(res fhir.Node) DiagnosticReport {
	code := firstCoding(res, "code")
	return DiagnosticReport{
		ID:            res.Get("id").Str(),
		Code:          code.Get("code").Str(),
		Display:       code.Get("display").Str(),
		EffectiveDate: pointOrPeriod(res, "effectiveDateTime", "effectivePeriod"),
		Conclusion:    res.Get("conclusion").Str(),
		PresentedForm: presentedForm(res.Get("presentedForm")),
		EncounterRef:  encounterRef(res),
	}
}

// presentedForm joins the data of every attachment with newlines. Data that
// decodes as base64 into valid UTF-8 is replaced by its decoded text; any
// other data is kept as given.
func presentedForm(forms fhir.Node) string {
	var parts []string
	for _, form := range forms.Items() {
		if !form.Has("data") {
			continue
		}
		parts = append(parts, DecodeNarrative(form.Get("data").Str()))
	}
	return strings.Join(parts, "\n")
}

// DecodeNarrative decodes base64 narrative data, returning the input
// unchanged when it is not base64 or does not decode to text.
func DecodeNarrative(data string) string {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil || !utf8.Valid(decoded) {
		return data
	}
	return string(decoded)
}

// ExtractEncounter maps an Encounter resource. Linkage lists start empty.
func ExtractEncounter(res fhir.Node) Encounter {
	typ := res.First("type").First("coding")

	class := res.Get("class")
	if class.IsArray() {
		class = class.Index(0).First("coding")
	}
	classCode := class.Get("code").Str()

	rc := res.First("reasonCode").First("coding")

	return Encounter{
		ID:              res.Get("id").Str(),
		TypeCode:        typ.Get("code").Str(),
		TypeDisplay:     typ.Get("display").StrOr(DefaultEncounterType),
		ClassCode:       classCode,
		ClassDisplay:    class.Get("display").StrOr(fallback(classCode, DefaultEncounterClass)),
		StartDate:       res.Path("period", "start").Str(),
		EndDate:         optional(res.Path("period", "end").Str()),
		ReasonCode:      rc.Get("code").Str(),
		ReasonDisplay:   rc.Get("display").StrOr(DefaultEncounterReason),
		ServiceProvider: res.Path("serviceProvider", "display").Str(),
		EncounterLinks:  newEncounterLinks(),
	}
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
