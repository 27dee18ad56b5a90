package dataset

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/layercake/layercake/internal/model"
)

// newBytesReader is a tiny indirection so ParseTabular/ParseJSON always take
// an io.Reader while Service works with the []byte blob stored on Dataset.
func newBytesReader(blob []byte) io.Reader {
	return bytes.NewReader(blob)
}

// peekCSVHeaders reads just the header row, for data-type inference before
// committing to a full parse.
func peekCSVHeaders(blob []byte, format model.FileFormat) ([]string, error) {
	cr := csv.NewReader(bytes.NewReader(blob))
	if format == model.FormatTSV {
		cr.Comma = '\t'
	}
	cr.FieldsPerRecord = -1
	headers, err := cr.Read()
	if err != nil {
		return nil, model.Wrap(model.ErrUnsupportedFormat, "read header row: %v", err)
	}
	return headers, nil
}
