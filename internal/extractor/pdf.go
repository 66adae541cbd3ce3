package extractor

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

// extractPDF tries the embedded text layer, then pdftotext, then OCR of the
// rasterised pages. When OCR cannot help, whatever digital text exists is
// returned with a warning.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (*Result, error) {
	pages, libErr := readPDFText(data)
	if libErr == nil && e.isReadableText(pages) {
		return &Result{Text: joinPages(pages), Method: models.MethodPDFText, Pages: len(pages)}, nil
	}
	if libErr != nil {
		e.logger.Debug().Err(libErr).Msg("pdf library could not read document")
	}

	popplerPages, popplerErr := e.pdftotext(ctx, data)
	if popplerErr == nil && e.isReadableText(popplerPages) {
		return &Result{Text: joinPages(popplerPages), Method: models.MethodPdftotext, Pages: len(popplerPages)}, nil
	}

	digital := &Result{Text: joinPages(pages), Method: models.MethodPDFText, Pages: len(pages)}
	if totalTextLen(popplerPages) > totalTextLen(pages) {
		digital = &Result{Text: joinPages(popplerPages), Method: models.MethodPdftotext, Pages: len(popplerPages)}
	}

	ocrPages, ocrErr := e.ocrPDF(ctx, data)
	if ocrErr == nil && totalTextLen(ocrPages) > 0 {
		return &Result{Text: joinPages(ocrPages), Method: models.MethodPDFOCR, Pages: len(ocrPages)}, nil
	}
	if ocrErr == nil {
		ocrErr = eris.New("OCR produced no text")
	}

	if libErr != nil && popplerErr != nil {
		return nil, eris.Wrapf(ErrUnreadableDocument, "pdf: %v; pdftotext: %v; ocr: %v", libErr, popplerErr, ocrErr)
	}

	e.logger.Warn().Err(ocrErr).Msg("OCR fallback failed, using embedded text")
	digital.Warnings = append(digital.Warnings, "embedded text looks incomplete and OCR failed: "+ocrErr.Error())
	return digital, nil
}

// textQuality returns the ratio of plain ASCII readable characters (letters,
// digits, common punctuation, whitespace) to all characters. unicode.IsLetter
// is too broad: identity-encoded fonts decode to accented garbage.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				strings.ContainsRune(".,-/:;()'\"$£€%&@#!?+=*|", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// billWords appear on practically every electricity bill. Text containing
// none of them is almost certainly garbage.
var billWords = []string{
	"account", "amount", "bill", "charge", "customer", "date", "due",
	"electricity", "energy", "gst", "invoice", "kwh", "meter", "nmi",
	"period", "supply", "tariff", "total", "usage",
}

func containsBillWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range billWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires at least MinTextChars of text, more than 60%
// readable ASCII, and at least one bill word.
func (e *Extractor) isReadableText(pages []string) bool {
	if totalTextLen(pages) < e.cfg.MinTextChars {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsBillWords(pages)
}

// pdftotext runs poppler's pdftotext over a temp copy of the document. Pages
// come back separated by form feeds.
func (e *Extractor) pdftotext(ctx context.Context, data []byte) ([]string, error) {
	dir, err := os.MkdirTemp("", "bill-pdftotext-*")
	if err != nil {
		return nil, eris.Wrap(err, "failed to create temp dir")
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "bill.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, eris.Wrap(err, "failed to write temp pdf")
	}

	out, stderr, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", in, "-")
	if err != nil {
		return nil, eris.Wrapf(err, "pdftotext failed: %s", strings.TrimSpace(string(stderr)))
	}

	var pages []string
	for _, page := range strings.Split(string(out), "\f") {
		if text := strings.TrimSpace(page); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, eris.New("pdftotext produced no output")
	}
	return pages, nil
}

// readPDFText uses ledongthuc/pdf with several strategies and returns the
// first readable one, or the last attempt.
func readPDFText(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pdf library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "failed to open pdf")
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, eris.New("pdf has no pages")
	}

	strategies := []func(*pdf.Reader, int) []string{
		pagesByRow,
		pagesByContent,
		pagesByPlainText,
	}
	for _, strategy := range strategies {
		pages = strategy(r, numPages)
		if looksLikeText(pages) {
			return pages, nil
		}
	}

	if whole := documentPlainText(r); looksLikeText([]string{whole}) {
		return []string{whole}, nil
	}
	return pages, nil
}

// looksLikeText is the library-internal gate between strategies. It is looser
// than isReadableText: length is judged by the caller.
func looksLikeText(pages []string) bool {
	return totalTextLen(pages) > 0 && textQuality(pages) > 0.6 && containsBillWords(pages)
}

// pagesByRow keeps the library's row grouping.
func pagesByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// pagesByContent rebuilds rows from raw text objects: group by rounded Y (top
// of page first), order by X, and mark wide gaps as column breaks.
func pagesByContent(r *pdf.Reader, numPages int) []string {
	type piece struct {
		x float64
		s string
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		rows := make(map[int][]piece)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			rows[y] = append(rows[y], piece{x: t.X, s: t.S})
		}

		ys := make([]int, 0, len(rows))
		for y := range rows {
			ys = append(ys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		var lines []string
		for _, y := range ys {
			row := rows[y]
			sort.Slice(row, func(a, b int) bool { return row[a].x < row[b].x })

			var sb strings.Builder
			for j, p := range row {
				if j > 0 && p.x-row[j-1].x > 15 {
					sb.WriteString("  ")
				}
				sb.WriteString(p.s)
			}
			if line := strings.TrimSpace(sb.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// pagesByPlainText decodes each page with its own font map.
func pagesByPlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

// documentPlainText is the library's whole-document extraction path.
func documentPlainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func joinPages(pages []string) string {
	return strings.Join(pages, "\n\n")
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
