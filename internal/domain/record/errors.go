package record

import (
	"errors"
	"fmt"

	"github.com/ehr/fhirextract/internal/platform/fhir"
)

var (
	// ErrStructural marks a bundle that is not a container of entries, or an
	// entry whose resource is not an object. It is fatal to that bundle only.
	ErrStructural = errors.New("bundle is structurally invalid")

	// ErrNotFound is returned by the repository for unknown patients.
	ErrNotFound = errors.New("patient record not found")

	// ErrNoPatient is returned when a caller requires a patient identity and
	// the record has none.
	ErrNoPatient = errors.New("record has no patient id")
)

// StructuralError reports where a bundle stopped being readable. Index is
// the offending entry, or -1 when the container itself is wrong.
type StructuralError struct {
	Index  int
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrStructural, e.Reason)
	}
	return fmt.Sprintf("%s: entry[%d]: %s", ErrStructural, e.Index, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

func structuralError(err error) error {
	var ee *fhir.EntryError
	if errors.As(err, &ee) {
		return &StructuralError{Index: ee.Index, Reason: ee.Reason}
	}
	return &StructuralError{Index: -1, Reason: err.Error()}
}
