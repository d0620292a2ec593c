package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

type parquetFile struct {
	f *os.File
	w *parquet.Writer
}

func newParquetFile(f *os.File, prototype any) (*parquetFile, error) {
	if prototype == nil {
		return nil, fmt.Errorf("no row type for parquet schema")
	}
	w := parquet.NewWriter(f, parquet.SchemaOf(prototype))
	return &parquetFile{f: f, w: w}, nil
}

func (p *parquetFile) write(rows []any) error {
	for _, r := range rows {
		if err := p.w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (p *parquetFile) close() error {
	if err := p.w.Close(); err != nil {
		p.f.Close()
		return err
	}
	return p.f.Close()
}
