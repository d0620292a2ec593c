package flatten

import "github.com/ehr/fhirextract/internal/platform/export"

// WriteTo hands every dataset of rs to sink in dataset order.
func (rs *RowSet) WriteTo(sink export.Sink) error {
	for _, d := range Datasets {
		if err := sink.WriteRows(string(d), rs.Rows(d)); err != nil {
			return err
		}
	}
	return nil
}
