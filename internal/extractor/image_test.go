package extractor

import (
	"bytes"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"small scan upscaled by whole factor", 500, 300, 2000, 1200},
		{"factor rounds down", 900, 600, 1800, 1200},
		{"large enough left alone", 1600, 100, 1600, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := preprocess(pngBytes(tt.w, tt.h))
			require.NoError(t, err)

			img, err := imaging.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	_, err := preprocess([]byte("definitely not an image"))

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnreadableDocument))
}
