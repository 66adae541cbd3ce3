// Package extractor turns an uploaded bill (PDF or photo) into plain text.
//
// Digital PDFs are read directly; when the embedded text is missing or
// unreadable the pages are rasterised and sent through OCR. Images always go
// through OCR.
package extractor

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

var (
	// ErrUnsupportedDocument is returned for anything that is not a PDF, JPEG or PNG.
	ErrUnsupportedDocument = eris.New("unsupported document type")

	// ErrUnreadableDocument is returned when no text could be produced at all.
	ErrUnreadableDocument = eris.New("document could not be read")

	// ErrOCRUnavailable is returned by the "none" recognizer.
	ErrOCRUnavailable = eris.New("OCR is not available")
)

// Kind is the detected document type.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
	KindUnknown Kind = "unknown"
)

// Config controls text extraction.
type Config struct {
	MinTextChars    int    // digital text shorter than this is treated as unreadable, default 100
	Engine          string // tesseract | vision | none
	Language        string // tesseract language, default "eng"
	PSM             int    // tesseract page segmentation mode, default 6
	DPI             int    // rasterisation DPI for scanned PDFs, default 300
	Pdftoppm        string // binary name or path, default "pdftoppm"
	Pdftotext       string // binary name or path, default "pdftotext"
	CredentialsFile string // Google Cloud credentials for the vision engine
}

func (c Config) withDefaults() Config {
	if c.MinTextChars <= 0 {
		c.MinTextChars = 100
	}
	if c.Engine == "" {
		c.Engine = EngineTesseract
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.PSM <= 0 {
		c.PSM = 6
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	return c
}

// Result is the text produced for one document.
type Result struct {
	Text     string
	Method   string // one of the models.Method* values
	Pages    int
	Warnings []string
	Duration time.Duration
}

// Extractor produces text from documents. It holds no per-document state and
// may be shared.
type Extractor struct {
	cfg    Config
	runner Runner
	ocr    Recognizer
	logger zerolog.Logger
}

// New returns an Extractor. A nil recognizer disables OCR.
func New(cfg Config, ocr Recognizer, logger zerolog.Logger) *Extractor {
	if ocr == nil {
		ocr = noRecognizer{}
	}
	return &Extractor{
		cfg:    cfg.withDefaults(),
		runner: execRunner{logger: logger},
		ocr:    ocr,
		logger: logger.With().Str("component", "extractor").Logger(),
	}
}

// Extract detects the document type from its content and name and returns its
// text.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (*Result, error) {
	start := time.Now()
	kind := DetectKind(name, data)
	e.logger.Debug().Str("file", name).Str("kind", string(kind)).Int("bytes", len(data)).Msg("extracting text")

	var (
		res *Result
		err error
	)
	switch kind {
	case KindPDF:
		res, err = e.extractPDF(ctx, data)
	case KindImage:
		res, err = e.extractImage(ctx, data)
	default:
		return nil, eris.Wrapf(ErrUnsupportedDocument, "%q", name)
	}
	if err != nil {
		return nil, err
	}

	res.Text = NormalizeText(res.Text)
	res.Duration = time.Since(start)
	e.logger.Info().
		Str("file", name).
		Str("method", res.Method).
		Int("pages", res.Pages).
		Int("chars", len(res.Text)).
		Int("warnings", len(res.Warnings)).
		Dur("duration", res.Duration).
		Msg("text extracted")
	return res, nil
}

// DetectKind sniffs the content first and falls back to the file extension.
func DetectKind(name string, data []byte) Kind {
	switch http.DetectContentType(data) {
	case "application/pdf":
		return KindPDF
	case "image/jpeg", "image/png":
		return KindImage
	}
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return KindPDF
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".jpg", ".jpeg", ".png":
		return KindImage
	}
	return KindUnknown
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (*Result, error) {
	img, err := preprocess(data)
	if err != nil {
		return nil, err
	}
	text, err := e.ocr.Recognize(ctx, img)
	if err != nil {
		return nil, eris.Wrapf(ErrUnreadableDocument, "image OCR failed: %v", err)
	}
	return &Result{Text: fixOCRText(text), Method: models.MethodImageOCR, Pages: 1}, nil
}
