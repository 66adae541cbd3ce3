package extractor

import (
	"context"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
)

// OCR engine names.
const (
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
	EngineNone      = "none"
)

// Recognizer turns a page image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Close() error
}

// NewRecognizer builds the recognizer named by cfg.Engine.
func NewRecognizer(ctx context.Context, cfg Config) (Recognizer, error) {
	cfg = cfg.withDefaults()
	switch cfg.Engine {
	case EngineTesseract:
		return &TesseractRecognizer{Language: cfg.Language, PSM: cfg.PSM}, nil
	case EngineVision:
		return NewVisionRecognizer(ctx, cfg.CredentialsFile)
	case EngineNone:
		return noRecognizer{}, nil
	}
	return nil, eris.Errorf("unknown OCR engine %q", cfg.Engine)
}

// TesseractRecognizer runs the local Tesseract library. A fresh client is
// created per image so the recognizer can be shared between requests.
type TesseractRecognizer struct {
	Language string
	PSM      int
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Language); err != nil {
		return "", eris.Wrapf(err, "tesseract: set language %q", t.Language)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(t.PSM)); err != nil {
		return "", eris.Wrapf(err, "tesseract: set page segmentation mode %d", t.PSM)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", eris.Wrap(err, "tesseract: set image")
	}
	text, err := client.Text()
	if err != nil {
		return "", eris.Wrap(err, "tesseract: recognise")
	}
	return text, nil
}

func (t *TesseractRecognizer) Close() error {
	return nil
}

// noRecognizer is used when OCR is switched off.
type noRecognizer struct{}

func (noRecognizer) Recognize(context.Context, []byte) (string, error) {
	return "", ErrOCRUnavailable
}

func (noRecognizer) Close() error {
	return nil
}
