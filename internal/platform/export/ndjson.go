package export

import (
	"os"

	"github.com/ehr/fhirextract/internal/platform/fhir"
)

type ndjsonFile struct {
	f *os.File
	w *fhir.NDJSONWriter
}

func newNDJSONFile(f *os.File) *ndjsonFile {
	return &ndjsonFile{f: f, w: fhir.NewNDJSONWriter(f)}
}

func (n *ndjsonFile) write(rows []any) error {
	for _, r := range rows {
		if err := n.w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (n *ndjsonFile) close() error {
	if err := n.w.Flush(); err != nil {
		n.f.Close()
		return err
	}
	return n.f.Close()
}
