package export

import (
	"encoding/csv"
	"os"
)

type csvFile struct {
	f       *os.File
	w       *csv.Writer
	strings func(any) []string
}

func newCSVFile(f *os.File, header []string, strings func(any) []string) (*csvFile, error) {
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	return &csvFile{f: f, w: w, strings: strings}, nil
}

func (c *csvFile) write(rows []any) error {
	for _, r := range rows {
		if err := c.w.Write(c.strings(r)); err != nil {
			return err
		}
	}
	return nil
}

func (c *csvFile) close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
