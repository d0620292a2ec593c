package record

// pendingLink is an encounter reference seen while walking, resolved only
// after every encounter in the bundle is known.
type pendingLink struct {
	encounterID string
	kind        Kind
	resourceID  string
}

type linkTable []pendingLink

// add records a reference from resource id of the given kind. Resources
// without an encounter reference are not recorded.
func (t *linkTable) add(ref string, kind Kind, id string) {
	eid := EncounterID(ref)
	if eid == "" {
		return
	}
	*t = append(*t, pendingLink{encounterID: eid, kind: kind, resourceID: id})
}

// linkEncounters appends every pending resource id to the list of its
// encounter. It can reach the encounters' link lists and nothing else.
// References to encounters outside the bundle are dropped.
func linkEncounters(pending linkTable, lookup func(encounterID string) (*EncounterLinks, bool)) (linked, dropped int) {
	for _, p := range pending {
		links, ok := lookup(p.encounterID)
		if !ok {
			dropped++
			continue
		}
		links.append(p.kind, p.resourceID)
		linked++
	}
	return linked, dropped
}

func (l *EncounterLinks) append(kind Kind, id string) {
	switch kind {
	case KindCondition:
		l.Conditions = append(l.Conditions, id)
	case KindMedication:
		l.Medications = append(l.Medications, id)
	case KindObservation:
		l.Observations = append(l.Observations, id)
	case KindProcedure:
		l.Procedures = append(l.Procedures, id)
	case KindImmunization:
		l.Immunizations = append(l.Immunizations, id)
	case KindDiagnosticReport:
		l.DiagnosticReports = append(l.DiagnosticReports, id)
	}
}
