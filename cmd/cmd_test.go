package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/bill-to-quote/internal/config"
	"github.com/insightdelivered/bill-to-quote/internal/models"
	"github.com/insightdelivered/bill-to-quote/internal/writer"
)

func sampleBill() *models.Bill {
	headers := models.NewHeaderFields()
	headers[models.FieldNMI] = "4102345678"
	headers[models.FieldRetailer] = "AGL"
	return &models.Bill{
		Source:  "bill.pdf",
		Method:  models.MethodPDFText,
		Text:    "raw text",
		Headers: headers,
		Lines: []models.UsageLine{
			{Units: "22491.8", Description: "Peak Usage kWh @", Rate: "0.0632", Discount: "5.5%"},
			{Units: "98", Description: "Daily Supply"},
		},
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWriteBillJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBill(&buf, sampleBill(), formatJSON))

	var got models.Bill
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "4102345678", got.Headers[models.FieldNMI])
	assert.Len(t, got.Lines, 2)
	assert.NotContains(t, buf.String(), "raw text")
}

func TestWriteBillYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBill(&buf, sampleBill(), formatYAML))

	var got models.Bill
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, models.MethodPDFText, got.Method)
	assert.Equal(t, "0.0632", got.Lines[0].Rate)
	assert.Contains(t, buf.String(), "description: Daily Supply")
}

func TestWriteBillCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBill(&buf, sampleBill(), formatCSV))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "# NMI,4102345678", lines[0])
	assert.Contains(t, lines, "Units,Description,Rate,Discount")
	assert.Contains(t, lines, "98,Daily Supply,,")
}

func TestWriteBillUnknownFormat(t *testing.T) {
	assert.Error(t, writeBill(&bytes.Buffer{}, sampleBill(), "xml"))
}

func TestExtractorConfig(t *testing.T) {
	c := &config.Config{
		Extract: config.ExtractConfig{MinTextChars: 50},
		OCR: config.OCRConfig{
			Engine:          "vision",
			Language:        "eng+deu",
			PSM:             4,
			DPI:             200,
			PdftoppmPath:    "/opt/poppler/pdftoppm",
			PdftotextPath:   "/opt/poppler/pdftotext",
			CredentialsFile: "sa.json",
		},
	}

	got := extractorConfig(c)
	assert.Equal(t, 50, got.MinTextChars)
	assert.Equal(t, "vision", got.Engine)
	assert.Equal(t, "eng+deu", got.Language)
	assert.Equal(t, 4, got.PSM)
	assert.Equal(t, 200, got.DPI)
	assert.Equal(t, "/opt/poppler/pdftoppm", got.Pdftoppm)
	assert.Equal(t, "/opt/poppler/pdftotext", got.Pdftotext)
	assert.Equal(t, "sa.json", got.CredentialsFile)
}

func TestApplyEdits(t *testing.T) {
	headers := sampleBill().Headers
	lines := sampleBill().Lines

	linesPath := writeFile(t, "lines.json", `[{"Units": 10, "Description": "Off Peak", "Rate": 0.12}]`)
	require.NoError(t, applyEdits(&headers, &lines, "", linesPath))

	assert.Equal(t, "AGL", headers[models.FieldRetailer], "headers untouched without a file")
	assert.Equal(t, []models.UsageLine{{Units: "10", Description: "Off Peak", Rate: "0.12"}}, lines)

	headersPath := writeFile(t, "headers.json", `{"Retailer": "Origin"}`)
	require.NoError(t, applyEdits(&headers, &lines, headersPath, ""))
	assert.Equal(t, "Origin", headers[models.FieldRetailer])
	assert.Empty(t, headers[models.FieldNMI])
}

func TestApplyEditsMalformed(t *testing.T) {
	headers := models.NewHeaderFields()
	var lines []models.UsageLine

	badPath := writeFile(t, "lines.json", `[1, 2]`)
	assert.Error(t, applyEdits(&headers, &lines, "", badPath))
	assert.Error(t, applyEdits(&headers, &lines, "", filepath.Join(t.TempDir(), "missing.json")))
}

func TestFillCommandFromEdits(t *testing.T) {
	t.Setenv("BILLQUOTE_OCR_ENGINE", "none")

	f := excelize.NewFile()
	templatePath := filepath.Join(t.TempDir(), "quote.xlsx")
	require.NoError(t, f.SaveAs(templatePath))
	require.NoError(t, f.Close())

	headersPath := writeFile(t, "headers.json", `{"Customer Name": "JANE CITIZEN"}`)
	linesPath := writeFile(t, "lines.json", `[{"Units": "120", "Description": "Peak", "Rate": "0.25"}]`)
	outPath := filepath.Join(t.TempDir(), "out.xlsx")

	rootCmd.SetArgs([]string{"fill",
		"--headers", headersPath,
		"--lines", linesPath,
		"--template", templatePath,
		"--output", outPath,
	})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	filled, err := writer.ReadBack(data)
	require.NoError(t, err)
	assert.Equal(t, "JANE CITIZEN", filled.Headers[models.FieldCustomerName])
	assert.Equal(t, []models.UsageLine{{Units: "120", Description: "Peak", Rate: "0.25"}}, filled.Lines)
}
