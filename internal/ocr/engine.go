// Package ocr locates text on screen: it runs recognition over
// native-resolution captures and resolves queries into click-ready native
// coordinates.
package ocr

import (
	"bytes"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/deskpilot/platform/internal/errors"
	"github.com/deskpilot/platform/internal/geometry"
)

// Word is one recognized token with its native-coordinate bounding box.
type Word struct {
	Text       string
	Box        geometry.Region
	Confidence float64 // [0,1]
}

// Engine runs text detection and recognition over an image.
type Engine interface {
	Words(img image.Image) ([]Word, error)
}

// Tesseract recognizes text with a local Tesseract install via gosseract.
// A fresh client per call keeps the engine stateless; model load cost is
// paid by Tesseract's own caching.
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract engine. With no languages given,
// Tesseract's default (eng) applies.
func NewTesseract(languages ...string) *Tesseract {
	return &Tesseract{languages: languages}
}

// Words runs word-level recognition. Coordinates come back in the input
// image's own pixel space, which for screen captures is native space.
func (t *Tesseract) Words(img image.Image) ([]Word, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "encoding image for recognition")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return nil, errors.Wrap(err, errors.ModelUnavailable, "setting recognition languages")
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, errors.Wrap(err, errors.ModelUnavailable, "loading image into tesseract")
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, errors.Wrap(err, errors.ModelUnavailable, "tesseract recognition failed")
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		words = append(words, Word{
			Text: b.Word,
			Box: geometry.Region{
				X:      b.Box.Min.X,
				Y:      b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
			Confidence: conf,
		})
	}
	return words, nil
}
