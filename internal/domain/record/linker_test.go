package record

import (
	"reflect"
	"testing"
)

func TestLinkTable_AddSkipsMissingReference(t *testing.T) {
	var lt linkTable
	lt.add("", KindCondition, "c1")
	lt.add("   ", KindCondition, "c2")
	lt.add("Encounter/e1", KindCondition, "c3")
	lt.add("urn:uuid:e2", KindObservation, "o1")

	want := linkTable{
		{encounterID: "e1", kind: KindCondition, resourceID: "c3"},
		{encounterID: "e2", kind: KindObservation, resourceID: "o1"},
	}
	if !reflect.DeepEqual(lt, want) {
		t.Errorf("linkTable = %+v, want %+v", lt, want)
	}
}

func TestLinkEncounters(t *testing.T) {
	e1 := newEncounterLinks()
	known := map[string]*EncounterLinks{"e1": &e1}
	lookup := func(id string) (*EncounterLinks, bool) {
		l, ok := known[id]
		return l, ok
	}

	pending := linkTable{
		{encounterID: "e1", kind: KindProcedure, resourceID: "pr1"},
		{encounterID: "e9", kind: KindProcedure, resourceID: "pr2"},
		{encounterID: "e1", kind: KindProcedure, resourceID: "pr3"},
		{encounterID: "e1", kind: KindDiagnosticReport, resourceID: "d1"},
	}
	linked, dropped := linkEncounters(pending, lookup)
	if linked != 3 || dropped != 1 {
		t.Errorf("linked/dropped = %d/%d, want 3/1", linked, dropped)
	}
	if !reflect.DeepEqual(e1.Procedures, []string{"pr1", "pr3"}) {
		t.Errorf("Procedures = %v, want bundle order", e1.Procedures)
	}
	if !reflect.DeepEqual(e1.DiagnosticReports, []string{"d1"}) {
		t.Errorf("DiagnosticReports = %v", e1.DiagnosticReports)
	}
}
