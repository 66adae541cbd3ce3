package writer

import (
	"bytes"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

// OutputFileName is the name given to a filled quote.
const OutputFileName = "filled_quote.xlsx"

// Usage table layout: record i goes to row TableStartRow+i. Column B is left
// alone.
const (
	TableStartRow = 34
	TableRows     = models.MaxUsageLines

	ColUnits       = "A"
	ColDescription = "C"
	ColRate        = "D"
	ColDiscount    = "E"
)

var tableColumns = []string{ColUnits, ColDescription, ColRate, ColDiscount}

// HeaderCells maps the header fields the quote shows to their cells. Fields
// not listed here are extracted but not written.
var HeaderCells = []struct {
	Field string
	Cell  string
}{
	{models.FieldCustomerName, "A6"},
	{models.FieldMeterType, "B15"},
	{models.FieldTariffClassification, "B16"},
	{models.FieldDistributionRegion, "B17"},
	{models.FieldSiteAddress, "B18"},
	{models.FieldNMI, "B19"},
	{models.FieldRetailer, "B20"},
}

var (
	// ErrTooManyLines is returned when more lines are given than the table holds.
	ErrTooManyLines = eris.New("too many usage lines for the quote table")

	// ErrSheetNotFound is returned when the requested sheet is not in the template.
	ErrSheetNotFound = eris.New("sheet not found in template")
)

// Options selects the worksheet to fill.
type Options struct {
	Sheet string
}

// Option configures FillTemplate and ReadBack.
type Option func(*Options)

// WithSheet fills the named sheet instead of the workbook's active sheet. An
// empty name keeps the default.
func WithSheet(name string) Option {
	return func(o *Options) {
		o.Sheet = name
	}
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FillTemplate writes headers and lines into a copy of the template workbook
// and returns the new workbook. The usage table range is cleared first so rows
// left over in the template never survive.
func FillTemplate(template []byte, headers models.HeaderFields, lines []models.UsageLine, opts ...Option) ([]byte, error) {
	if len(lines) > TableRows {
		return nil, eris.Wrapf(ErrTooManyLines, "got %d, limit %d", len(lines), TableRows)
	}

	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, eris.Wrap(err, "failed to open template")
	}
	defer f.Close()

	sheet, err := resolveSheet(f, buildOptions(opts).Sheet)
	if err != nil {
		return nil, err
	}

	for _, hc := range HeaderCells {
		if err := setCell(f, sheet, hc.Cell, headers[hc.Field]); err != nil {
			return nil, err
		}
	}

	for row := TableStartRow; row < TableStartRow+TableRows; row++ {
		for _, col := range tableColumns {
			if err := f.SetCellValue(sheet, col+strconv.Itoa(row), nil); err != nil {
				return nil, eris.Wrapf(err, "failed to clear %s%d", col, row)
			}
		}
	}

	for i, line := range lines {
		row := strconv.Itoa(TableStartRow + i)
		values := []string{line.Units, line.Description, line.Rate, line.Discount}
		for j, col := range tableColumns {
			if err := setCell(f, sheet, col+row, values[j]); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, eris.Wrap(err, "failed to write workbook")
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet, cell string, v any) error {
	val := CellValue(v)
	if s, ok := val.(string); ok && s == "" {
		val = nil
	}
	if err := f.SetCellValue(sheet, cell, val); err != nil {
		return eris.Wrapf(err, "failed to set %s!%s", sheet, cell)
	}
	return nil
}

func resolveSheet(f *excelize.File, name string) (string, error) {
	if name == "" {
		active := f.GetSheetName(f.GetActiveSheetIndex())
		if active == "" {
			return "", eris.Wrap(ErrSheetNotFound, "template has no active sheet")
		}
		return active, nil
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil || idx == -1 {
		return "", eris.Wrapf(ErrSheetNotFound, "sheet %q", name)
	}
	return name, nil
}

// Filled is what ReadBack finds in the fixed cells of a workbook.
type Filled struct {
	Headers models.HeaderFields
	Lines   []models.UsageLine
}

// ReadBack reads the header cells and usage table of a filled workbook. Cells
// are read raw, so numbers come back in their shortest decimal form. Trailing
// all-empty table rows are dropped.
func ReadBack(xlsx []byte, opts ...Option) (*Filled, error) {
	f, err := excelize.OpenReader(bytes.NewReader(xlsx))
	if err != nil {
		return nil, eris.Wrap(err, "failed to open workbook")
	}
	defer f.Close()

	sheet, err := resolveSheet(f, buildOptions(opts).Sheet)
	if err != nil {
		return nil, err
	}

	raw := excelize.Options{RawCellValue: true}
	get := func(cell string) (string, error) {
		v, err := f.GetCellValue(sheet, cell, raw)
		if err != nil {
			return "", eris.Wrapf(err, "failed to read %s!%s", sheet, cell)
		}
		return v, nil
	}

	out := &Filled{Headers: make(models.HeaderFields, len(HeaderCells))}
	for _, hc := range HeaderCells {
		v, err := get(hc.Cell)
		if err != nil {
			return nil, err
		}
		out.Headers[hc.Field] = v
	}

	lines := make([]models.UsageLine, 0, TableRows)
	last := 0
	for i := 0; i < TableRows; i++ {
		row := strconv.Itoa(TableStartRow + i)
		var values [4]string
		for j, col := range tableColumns {
			v, err := get(col + row)
			if err != nil {
				return nil, err
			}
			values[j] = v
		}
		line := models.UsageLine{Units: values[0], Description: values[1], Rate: values[2], Discount: values[3]}
		lines = append(lines, line)
		if line != (models.UsageLine{}) {
			last = i + 1
		}
	}
	out.Lines = lines[:last]
	return out, nil
}
