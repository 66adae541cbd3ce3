package extractor

import (
	"bytes"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
)

// Images whose longest side is under minOCRSide are upscaled by a whole factor
// towards targetOCRSide before recognition.
const (
	minOCRSide    = 1500
	targetOCRSide = 2000
	sharpenSigma  = 1.0
)

// preprocess decodes an image and prepares it for OCR: greyscale, upscale
// small scans, sharpen. The result is PNG encoded.
func preprocess(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, eris.Wrapf(ErrUnreadableDocument, "failed to decode image: %v", err)
	}

	gray := imaging.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	if longest := max(w, h); longest > 0 && longest < minOCRSide {
		if scale := targetOCRSide / longest; scale > 1 {
			gray = imaging.Resize(gray, w*scale, h*scale, imaging.Lanczos)
		}
	}
	sharp := imaging.Sharpen(gray, sharpenSigma)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, sharp, imaging.PNG); err != nil {
		return nil, eris.Wrap(err, "failed to encode preprocessed image")
	}
	return buf.Bytes(), nil
}
