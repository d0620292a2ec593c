package record

import (
	"github.com/ehr/fhirextract/internal/platform/fhir"
)

// walk carries the state of one pass over one bundle.
type walk struct {
	rec         *PatientRecord
	pending     linkTable
	unsupported map[string]int
}

type entryHandler func(w *walk, res fhir.Node)

// handlers maps each supported resourceType to the code that extracts,
// stores, indexes and queues links for it. Anything else is ignored.
var handlers = map[Kind]entryHandler{
	KindPatient:          (*walk).patient,
	KindEncounter:        (*walk).encounter,
	KindCondition:        (*walk).condition,
	KindMedication:       (*walk).medication,
	KindObservation:      (*walk).observation,
	KindProcedure:        (*walk).procedure,
	KindImmunization:     (*walk).immunization,
	KindDiagnosticReport: (*walk).diagnosticReport,
}

// Extract builds a PatientRecord from raw bundle JSON. The bundle is read in
// a single pass that extracts and date-indexes every supported resource,
// then encounter references are linked. Unsupported resource kinds are
// skipped. The only failure is a *StructuralError (matching ErrStructural),
// in which case no record is returned. A bundle without a Patient still
// yields a record; check HasPatient before using it.
func Extract(data []byte) (*PatientRecord, error) {
	w := &walk{
		rec:         newPatientRecord(),
		unsupported: make(map[string]int),
	}
	if err := fhir.EachEntry(data, w.visit); err != nil {
		return nil, structuralError(err)
	}

	encounters := &w.rec.Encounters
	w.rec.linked, w.rec.dropped = linkEncounters(w.pending, func(id string) (*EncounterLinks, bool) {
		e, ok := encounters.Get(id)
		if !ok {
			return nil, false
		}
		return &e.EncounterLinks, true
	})
	w.rec.unsupported = w.unsupported
	return w.rec, nil
}

func (w *walk) visit(entry fhir.BundleEntry) {
	h, ok := handlers[Kind(entry.ResourceType)]
	if !ok {
		w.unsupported[entry.ResourceType]++
		return
	}
	h(w, entry.Resource)
}

func (w *walk) patient(res fhir.Node) {
	w.rec.Patient = ExtractPatient(res)
}

func (w *walk) encounter(res fhir.Node) {
	e := ExtractEncounter(res)
	if stored, fresh := w.rec.Encounters.put(e.ID, &e); fresh {
		w.rec.index.addEncounter(stored.StartDate, stored)
	}
}

func (w *walk) condition(res fhir.Node) {
	c := ExtractCondition(res)
	if stored, fresh := w.rec.Conditions.put(c.ID, &c); fresh {
		w.rec.index.addCondition(stored.OnsetDate, stored)
	}
	w.pending.add(c.EncounterRef, KindCondition, c.ID)
}

func (w *walk) medication(res fhir.Node) {
	m := ExtractMedication(res)
	if stored, fresh := w.rec.Medications.put(m.ID, &m); fresh {
		w.rec.index.addMedication(stored.AuthoredOn, stored)
	}
	w.pending.add(m.EncounterRef, KindMedication, m.ID)
}

func (w *walk) observation(res fhir.Node) {
	o := ExtractObservation(res)
	if stored, fresh := w.rec.Observations.put(o.ID, &o); fresh {
		w.rec.index.addObservation(stored.EffectiveDate, stored)
	}
	w.pending.add(o.EncounterRef, KindObservation, o.ID)
}

func (w *walk) procedure(res fhir.Node) {
	p := ExtractProcedure(res)
	if stored, fresh := w.rec.Procedures.put(p.ID, &p); fresh {
		w.rec.index.addProcedure(stored.PerformedDate, stored)
	}
	w.pending.add(p.EncounterRef, KindProcedure, p.ID)
}

func (w *walk) immunization(res fhir.Node) {
	i := ExtractImmunization(res)
	if stored, fresh := w.rec.Immunizations.put(i.ID, &i); fresh {
		w.rec.index.addImmunization(stored.OccurrenceDate, stored)
	}
	w.pending.add(i.EncounterRef, KindImmunization, i.ID)
}

func (w *walk) diagnosticReport(res fhir.Node) {
	r := ExtractDiagnosticReport(res)
	if stored, fresh := w.rec.DiagnosticReports.put(r.ID, &r); fresh {
		w.rec.index.addDiagnosticReport(stored.EffectiveDate, stored)
	}
	w.pending.add(r.EncounterRef, KindDiagnosticReport, r.ID)
}
