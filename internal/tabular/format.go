package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/xuri/excelize/v2"
)

// Format identifies an on-disk or on-wire table encoding.
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatCSVGzip Format = "csv.gz"
)

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSVGzip:
		return "application/gzip"
	default:
		return "text/csv"
	}
}

// FormatFor picks the format from a file name extension.
func FormatFor(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX, nil
	case strings.HasSuffix(lower, ".csv.gz"), strings.HasSuffix(lower, ".gz"):
		return FormatCSVGzip, nil
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	default:
		return "", errors.Errorf("unsupported table file %q", name)
	}
}

// FormatForContentType picks the format from an HTTP Content-Type header.
// Anything that is not recognisably CSV is treated as an XLSX upload.
func FormatForContentType(contentType string) Format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "gzip"):
		return FormatCSVGzip
	case strings.Contains(ct, "csv"), strings.HasPrefix(ct, "text/plain"):
		return FormatCSV
	default:
		return FormatXLSX
	}
}

// Read decodes a table in the given format.
func Read(r io.Reader, f Format) (*Table, error) {
	switch f {
	case FormatXLSX:
		return ReadXLSX(r)
	case FormatCSV:
		return ReadCSV(r)
	case FormatCSVGzip:
		return ReadCSVGzip(r)
	default:
		return nil, errors.Errorf("unsupported format %q", f)
	}
}

// Write encodes a table in the given format.
func Write(w io.Writer, t *Table, f Format) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, t, "Sheet1")
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatCSVGzip:
		return WriteCSVGzip(w, t)
	default:
		return errors.Errorf("unsupported format %q", f)
	}
}

// ReadFile opens path and decodes it according to its extension.
func ReadFile(path string) (*Table, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f, format)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

// ReadXLSX decodes the first sheet of an XLSX workbook. Cell values are
// read raw so that number formats such as currency do not leak into prices.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheets[0])
	}
	return fromRecords(rows), nil
}

// WriteXLSX encodes t as a single-sheet workbook.
func WriteXLSX(w io.Writer, t *Table, sheet string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet != "" && sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return errors.Wrap(err, "name sheet")
		}
	} else {
		sheet = "Sheet1"
	}

	if err := setRow(f, sheet, 1, t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return errors.Wrapf(err, "row %d", n)
	}
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.Wrapf(err, "set row %d", n)
	}
	return nil
}

// ReadCSV decodes comma-separated values; the first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	return fromRecords(records), nil
}

// WriteCSV encodes t as comma-separated values.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, "write rows")
	}
	return nil
}

// ReadCSVGzip decodes gzip-compressed CSV.
func ReadCSVGzip(r io.Reader) (*Table, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()
	return ReadCSV(gz)
}

// WriteCSVGzip encodes t as gzip-compressed CSV.
func WriteCSVGzip(w io.Writer, t *Table) error {
	gz := pgzip.NewWriter(w)
	if err := WriteCSV(gz, t); err != nil {
		_ = gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "flush gzip")
	}
	return nil
}
