package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/parquet-go/parquet-go"
)

type vitalRow struct {
	PatientID string   `json:"patient_id" parquet:"patient_id"`
	Code      string   `json:"code" parquet:"code"`
	Value     *float64 `json:"value" parquet:"value,optional"`
}

type testSchema struct{}

func (testSchema) Columns(string) []string { return []string{"patient_id", "code", "value"} }
func (testSchema) Prototype(string) any    { return new(vitalRow) }
func (testSchema) Strings(row any) []string {
	r := row.(vitalRow)
	v := ""
	if r.Value != nil {
		v = strconv.FormatFloat(*r.Value, 'f', -1, 64)
	}
	return []string{r.PatientID, r.Code, v}
}

func fptr(f float64) *float64 { return &f }

var testRows = []any{
	vitalRow{PatientID: "p1", Code: "8867-4", Value: fptr(72)},
	vitalRow{PatientID: "p1", Code: "72166-2"},
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats([]string{"csv", " Parquet ", "csv", "", "ndjson"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Format{FormatCSV, FormatParquet, FormatNDJSON}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseFormats = %v, want %v", got, want)
	}
	if _, err := ParseFormats([]string{"xlsx"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewWriter_NoFormats(t *testing.T) {
	if _, err := NewWriter(t.TempDir(), nil, testSchema{}); err == nil {
		t.Error("expected error without formats")
	}
}

func TestWriter_CSV(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []Format{FormatCSV}, testSchema{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRows("vitals", testRows[:1]); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRows("vitals", testRows[1:]); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "vitals.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"patient_id", "code", "value"},
		{"p1", "8867-4", "72"},
		{"p1", "72166-2", ""},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("csv = %v, want %v", records, want)
	}
	if got := w.RowCounts()["vitals"]; got != 2 {
		t.Errorf("RowCounts = %d, want 2", got)
	}
}

func TestWriter_EmptyTableWritesNoFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []Format{FormatCSV, FormatParquet}, testSchema{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRows("empty", nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files, found %d", len(entries))
	}
	if len(w.Paths()) != 0 {
		t.Errorf("Paths() = %v", w.Paths())
	}
}

func TestWriter_Parquet(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []Format{FormatParquet}, testSchema{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRows("vitals", testRows); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	rows, err := parquet.ReadFile[vitalRow](filepath.Join(dir, "vitals.parquet"))
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Code != "8867-4" || rows[0].Value == nil || *rows[0].Value != 72 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Value != nil {
		t.Errorf("row 1 value = %v, want nil", *rows[1].Value)
	}
}

func TestWriter_NDJSON(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []Format{FormatNDJSON, FormatCSV}, testSchema{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRows("vitals", testRows); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "vitals.ndjson"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines []vitalRow
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r vitalRow
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		lines = append(lines, r)
	}
	if len(lines) != 2 || lines[1].Code != "72166-2" {
		t.Errorf("lines = %+v", lines)
	}

	want := []string{filepath.Join(dir, "vitals.ndjson"), filepath.Join(dir, "vitals.csv")}
	if got := w.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
}
