// Package dataset implements the Dataset Store (spec.md §4.1): ingesting an
// uploaded source, inferring its data type, parsing it into normal-form
// JSON, and exposing update/reprocess/validate/delete operations.
//
// Byte-level CSV/TSV/JSON parsing lives here directly on the standard
// library (see SPEC_FULL.md §4.1 extended); XLSX/ODS/PDF/XML are treated as
// external collaborators behind the FormatParser interface in external.go,
// per spec.md §1's non-goals.
package dataset

import (
	"path/filepath"
	"strings"

	"github.com/layercake/layercake/internal/model"
)

// extensionFormats maps a filename extension to its declared format
// (spec.md §6).
var extensionFormats = map[string]model.FileFormat{
	".csv":  model.FormatCSV,
	".tsv":  model.FormatTSV,
	".json": model.FormatJSON,
	".xlsx": model.FormatXLSX,
	".ods":  model.FormatODS,
	".pdf":  model.FormatPDF,
	".xml":  model.FormatXML,
}

// FormatForExtension returns the format implied by filename's extension and
// whether it was recognised.
func FormatForExtension(filename string) (model.FileFormat, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := extensionFormats[ext]
	return f, ok
}

// compatibleDataTypes lists, per spec.md §3, which DataType values a given
// FileFormat may declare. Spreadsheet/pdf/xml formats only become usable via
// import adapters that produce normal-form JSON directly, so they carry no
// native DataType compatibility here.
var compatibleDataTypes = map[model.FileFormat]map[model.DataType]bool{
	model.FormatCSV: {model.DataTypeNodes: true, model.DataTypeEdges: true, model.DataTypeLayers: true},
	model.FormatTSV: {model.DataTypeNodes: true, model.DataTypeEdges: true, model.DataTypeLayers: true},
	model.FormatJSON: {
		model.DataTypeGraph:  true,
		model.DataTypeNodes:  true,
		model.DataTypeEdges:  true,
		model.DataTypeLayers: true,
	},
}

// IsCompatible reports whether format may carry dataType.
func IsCompatible(format model.FileFormat, dataType model.DataType) bool {
	m, ok := compatibleDataTypes[format]
	if !ok {
		return false
	}
	return m[dataType]
}

// IsTabular reports whether format is parsed as delimited rows (CSV/TSV) as
// opposed to JSON or an external-adapter format.
func IsTabular(format model.FileFormat) bool {
	return format == model.FormatCSV || format == model.FormatTSV
}
