package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bill-to-quote/internal/models"
)

const readableBill = `Origin Energy Tax Invoice
Account Number: 123-456-789
Billing Period: 01 Jan 2024 - 31 Mar 2024
Peak Usage 2,491.80 kWh @ $0.3632
Supply Charge 91 days @ 1.2310
Total Amount Due $542.10`

type fakeOutput struct {
	stdout string
	err    error
	pages  int
}

type fakeRunner struct {
	outputs map[string]fakeOutput
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name)
	out := f.outputs[name]
	if name == "pdftoppm" && out.err == nil {
		prefix := args[len(args)-1]
		for i := 1; i <= out.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), pngBytes(400, 300), 0o600); err != nil {
				return nil, nil, err
			}
		}
	}
	return []byte(out.stdout), []byte("stderr"), out.err
}

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

func pngBytes(w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.SetGray(x, h/2, color.Gray{Y: 200})
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func newTestExtractor(runner Runner, rec Recognizer) *Extractor {
	e := New(Config{}, rec, zerolog.Nop())
	e.runner = runner
	return e
}

var fakePDF = []byte("%PDF-1.4\nnot really a pdf body")

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want Kind
	}{
		{"pdf magic", "upload", []byte("%PDF-1.7\n..."), KindPDF},
		{"png magic", "upload", pngBytes(2, 2), KindImage},
		{"jpeg magic", "upload", append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 16)...), KindImage},
		{"pdf extension", "bill.PDF", []byte("garbage"), KindPDF},
		{"jpg extension", "photo.jpg", []byte("garbage"), KindImage},
		{"text file", "notes.txt", []byte("hello"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectKind(tt.file, tt.data))
		})
	}
}

func TestExtractUnsupported(t *testing.T) {
	e := newTestExtractor(&fakeRunner{}, nil)

	_, err := e.Extract(context.Background(), "notes.txt", []byte("hello"))

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedDocument))
}

func TestExtractImage(t *testing.T) {
	rec := &fakeRecognizer{text: "Peak usage 1;5 kWh\t@ 0;2345  \r\n"}
	e := newTestExtractor(&fakeRunner{}, rec)

	res, err := e.Extract(context.Background(), "bill.png", pngBytes(600, 400))

	require.NoError(t, err)
	assert.Equal(t, models.MethodImageOCR, res.Method)
	assert.Equal(t, "Peak usage 1.5 kWh @ 0.2345", res.Text)
	assert.Equal(t, 1, rec.calls)
}

func TestExtractImageWithoutOCR(t *testing.T) {
	e := newTestExtractor(&fakeRunner{}, nil)

	_, err := e.Extract(context.Background(), "bill.png", pngBytes(600, 400))

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnreadableDocument))
}

func TestExtractImageUndecodable(t *testing.T) {
	e := newTestExtractor(&fakeRunner{}, &fakeRecognizer{text: "x"})

	_, err := e.Extract(context.Background(), "bill.jpg", []byte("not an image"))

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnreadableDocument))
}

func TestExtractPDFUsesPdftotext(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]fakeOutput{
		"pdftotext": {stdout: readableBill + "\f" + "Page two usage 10 kWh\f"},
	}}
	rec := &fakeRecognizer{text: "should not be used"}
	e := newTestExtractor(runner, rec)

	res, err := e.Extract(context.Background(), "bill.pdf", fakePDF)

	require.NoError(t, err)
	assert.Equal(t, models.MethodPdftotext, res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "Account Number: 123-456-789")
	assert.Contains(t, res.Text, "Page two usage 10 kWh")
	assert.Equal(t, 0, rec.calls)
	assert.Equal(t, []string{"pdftotext"}, runner.calls)
}

func TestExtractPDFFallsBackToOCR(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]fakeOutput{
		"pdftotext": {stdout: "\f\f"},
		"pdftoppm":  {pages: 2},
	}}
	rec := &fakeRecognizer{text: readableBill}
	e := newTestExtractor(runner, rec)

	res, err := e.Extract(context.Background(), "scan.pdf", fakePDF)

	require.NoError(t, err)
	assert.Equal(t, models.MethodPDFOCR, res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, rec.calls)
	assert.Empty(t, res.Warnings)
}

func TestExtractPDFKeepsShortTextWhenOCRFails(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]fakeOutput{
		"pdftotext": {stdout: "Daily supply 98 total"},
	}}
	e := newTestExtractor(runner, nil)

	res, err := e.Extract(context.Background(), "short.pdf", fakePDF)

	require.NoError(t, err)
	assert.Equal(t, models.MethodPdftotext, res.Method)
	assert.Equal(t, "Daily supply 98 total", res.Text)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "OCR")
}

func TestExtractPDFUnreadable(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]fakeOutput{
		"pdftotext": {err: eris.New("exit status 1")},
		"pdftoppm":  {err: eris.New("exit status 1")},
	}}
	e := newTestExtractor(runner, &fakeRecognizer{text: readableBill})

	_, err := e.Extract(context.Background(), "broken.pdf", fakePDF)

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnreadableDocument))
}

func TestIsReadableText(t *testing.T) {
	e := New(Config{}, nil, zerolog.Nop())

	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"bill text", []string{readableBill}, true},
		{"too short", []string{"Total 5"}, false},
		{"garbage glyphs", []string{strings.Repeat("ÿþýüûúùø", 30) + " total"}, false},
		{"no bill words", []string{strings.Repeat("lorem ipsum dolor sit amet ", 10)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.isReadableText(tt.pages))
		})
	}
}

func TestFixOCRText(t *testing.T) {
	assert.Equal(t, "Rate 0.2345 c/kWh; usage", fixOCRText("Rate 0;2345 c/kWh; usage"))
}
