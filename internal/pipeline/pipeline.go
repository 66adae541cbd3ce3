// Package pipeline wires text extraction, parsing and template filling into
// the two steps a user sees: extract a bill, then fill a quote.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/bill-to-quote/internal/extractor"
	"github.com/insightdelivered/bill-to-quote/internal/models"
	"github.com/insightdelivered/bill-to-quote/internal/parser"
	"github.com/insightdelivered/bill-to-quote/internal/writer"
)

// ErrTemplateNotFound is returned when no template was uploaded and the
// default template file does not exist.
var ErrTemplateNotFound = eris.New("quote template not found")

// TextExtractor produces text from an uploaded document.
type TextExtractor interface {
	Extract(ctx context.Context, name string, data []byte) (*extractor.Result, error)
}

// Pipeline runs one document at a time and keeps no state between calls.
type Pipeline struct {
	text   TextExtractor
	sheet  string
	logger zerolog.Logger
}

// New returns a Pipeline. sheet names the template worksheet to fill; empty
// means the workbook's active sheet.
func New(text TextExtractor, sheet string, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		text:   text,
		sheet:  sheet,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

// Extract reads the document and parses header fields and usage lines from
// its text. Finding nothing is not an error.
func (p *Pipeline) Extract(ctx context.Context, name string, data []byte) (*models.Bill, error) {
	res, err := p.text.Extract(ctx, name, data)
	if err != nil {
		return nil, err
	}

	headers, lines := parser.Parse(res.Text)
	bill := &models.Bill{
		Source:   name,
		Method:   res.Method,
		Text:     res.Text,
		Headers:  headers,
		Lines:    lines,
		Warnings: res.Warnings,
	}
	if len(lines) == 0 {
		bill.Warnings = append(bill.Warnings, "no usage lines found")
	}

	p.logger.Info().
		Str("file", name).
		Str("method", res.Method).
		Int("headers_found", headers.Found()).
		Int("lines", len(lines)).
		Msg("bill parsed")
	return bill, nil
}

// Fill writes headers and lines into the template and returns the workbook.
func (p *Pipeline) Fill(template []byte, headers models.HeaderFields, lines []models.UsageLine) ([]byte, error) {
	out, err := writer.FillTemplate(template, headers, lines, writer.WithSheet(p.sheet))
	if err != nil {
		return nil, err
	}
	p.logger.Info().Int("lines", len(lines)).Int("bytes", len(out)).Msg("quote filled")
	return out, nil
}

// Convert extracts a bill and fills the template with the result unedited.
func (p *Pipeline) Convert(ctx context.Context, name string, data, template []byte) (*models.Bill, []byte, error) {
	bill, err := p.Extract(ctx, name, data)
	if err != nil {
		return nil, nil, err
	}
	out, err := p.Fill(template, bill.Headers, bill.Lines)
	if err != nil {
		return nil, nil, err
	}
	return bill, out, nil
}

// LoadTemplate returns the uploaded template when there is one, otherwise the
// contents of defaultPath.
func LoadTemplate(uploaded []byte, defaultPath string) ([]byte, error) {
	if len(uploaded) > 0 {
		return uploaded, nil
	}
	if defaultPath == "" {
		return nil, eris.Wrap(ErrTemplateNotFound, "no template uploaded and no default configured")
	}
	data, err := os.ReadFile(defaultPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrTemplateNotFound, "%q", defaultPath)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read template %q", defaultPath)
	}
	return data, nil
}
