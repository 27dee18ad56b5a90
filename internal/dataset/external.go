package dataset

import "github.com/layercake/layercake/internal/model"

// FormatParser converts a raw blob in some external (non-native) format into
// normal form. spec.md §1 explicitly excludes XLSX/ODS/PDF/XML import from
// this repo's scope; this interface exists so such support can be added
// later as a separate collaborator without touching the Dataset Store's
// control flow. None of FormatCSV/FormatTSV/FormatJSON ever reach a
// FormatParser — those are handled natively by ParseTabular/ParseJSON.
type FormatParser interface {
	// Parse converts blob (declared as format, targeting dataType if it is
	// not DataTypeGraph) into normal form.
	Parse(blob []byte, format model.FileFormat, dataType model.DataType) (*model.NormalForm, error)

	// Supports reports whether this parser handles the given format.
	Supports(format model.FileFormat) bool
}

// UnsupportedFormatParser is the zero-value FormatParser registered for
// every external format by default: it always rejects, so a Dataset Store
// wired without a real XLSX/ODS/PDF/XML adapter fails closed with a clear
// error rather than silently mis-parsing a blob.
type UnsupportedFormatParser struct{}

func (UnsupportedFormatParser) Supports(model.FileFormat) bool { return false }

func (UnsupportedFormatParser) Parse(_ []byte, format model.FileFormat, _ model.DataType) (*model.NormalForm, error) {
	return nil, model.Wrap(model.ErrUnsupportedFormat, "format %q has no registered parser", format)
}
