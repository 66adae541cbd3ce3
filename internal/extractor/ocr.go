package extractor

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ocrPDF rasterises every page with pdftoppm and runs each page image through
// the recognizer. Pages that fail are skipped; it is an error only when no
// page produced text.
func (e *Extractor) ocrPDF(ctx context.Context, data []byte) ([]string, error) {
	if _, ok := e.ocr.(noRecognizer); ok {
		return nil, ErrOCRUnavailable
	}

	dir, err := os.MkdirTemp("", "bill-ocr-pages-*")
	if err != nil {
		return nil, eris.Wrap(err, "failed to create temp dir")
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "bill.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, eris.Wrap(err, "failed to write temp pdf")
	}

	prefix := filepath.Join(dir, "page")
	_, stderr, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", in, prefix)
	if err != nil {
		return nil, eris.Wrapf(err, "pdftoppm failed: %s", strings.TrimSpace(string(stderr)))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrap(err, "failed to read temp dir")
	}
	var images []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".png") {
			images = append(images, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(images)
	if len(images) == 0 {
		return nil, eris.New("pdftoppm produced no page images")
	}

	var pages []string
	for _, path := range images {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ocr cancelled")
		}
		text, err := e.ocrPage(ctx, path)
		if err != nil {
			e.logger.Warn().Err(err).Str("page", filepath.Base(path)).Msg("page OCR failed")
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, eris.Errorf("OCR produced no text from %d page images", len(images))
	}
	return pages, nil
}

func (e *Extractor) ocrPage(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrap(err, "failed to read page image")
	}
	img, err := preprocess(raw)
	if err != nil {
		return "", err
	}
	text, err := e.ocr.Recognize(ctx, img)
	if err != nil {
		return "", err
	}
	return fixOCRText(text), nil
}

// ocrDecimal catches OCR reading a decimal point as a semicolon: "0;2345".
var ocrDecimal = regexp.MustCompile(`(\d);(\d)`)

func fixOCRText(text string) string {
	return ocrDecimal.ReplaceAllString(text, "$1.$2")
}
