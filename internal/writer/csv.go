package writer

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

// CSVWriter writes a bill's usage lines in CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes the bill to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, bill *models.Bill) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "failed to create output file %q", path)
	}
	defer f.Close()

	return w.Write(f, bill)
}

// Write writes the bill in CSV format to the given writer. With IncludeHeader
// set, every non-empty header field is written first as a "# <Field>" row.
func (w *CSVWriter) Write(out io.Writer, bill *models.Bill) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, name := range models.HeaderFieldNames {
			if v := bill.Headers[name]; v != "" {
				if err := writer.Write([]string{"# " + name, v}); err != nil {
					return eris.Wrap(err, "failed to write CSV metadata")
				}
			}
		}
	}

	header := []string{"Units", "Description", "Rate", "Discount"}
	if err := writer.Write(header); err != nil {
		return eris.Wrap(err, "failed to write CSV header")
	}

	for _, line := range bill.Lines {
		row := []string{line.Units, line.Description, line.Rate, line.Discount}
		if err := writer.Write(row); err != nil {
			return eris.Wrap(err, "failed to write CSV row")
		}
	}

	writer.Flush()
	return eris.Wrap(writer.Error(), "failed to flush CSV")
}
