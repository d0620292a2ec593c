package fhir

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
)

func scanNDJSON(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestNDJSONWriter_WritesOneLinePerValue(t *testing.T) {
	var buf bytes.Buffer
	w := NewNDJSONWriter(&buf)

	rows := []map[string]interface{}{
		{"patient_id": "p1", "condition_id": "c1"},
		{"patient_id": "p1", "condition_id": "c2"},
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	lines := scanNDJSON(t, buf.Bytes())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1]["condition_id"] != "c2" {
		t.Errorf("expected c2 on second line, got %v", lines[1]["condition_id"])
	}
}

func TestNDJSONWriter_NothingBeforeFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewNDJSONWriter(&buf)
	if err := w.Write(map[string]string{"id": "x"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected buffered output before Flush, got %q", buf.String())
	}
	w.Flush()
	if buf.Len() == 0 {
		t.Error("expected output after Flush")
	}
}

func TestNDJSONWriter_UnmarshalableValue(t *testing.T) {
	var buf bytes.Buffer
	w := NewNDJSONWriter(&buf)
	if err := w.Write(make(chan int)); err == nil {
		t.Error("expected error for unmarshalable value")
	}
	w.Flush()
	if buf.Len() != 0 {
		t.Errorf("failed write left output %q", buf.String())
	}
}
