package ocr

import (
	"image"
	"sort"
	"strings"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/deskpilot/platform/internal/capture"
	"github.com/deskpilot/platform/internal/geometry"
)

// Recognition tuning. Documented defaults, not reverse-engineered
// constants; adjust with care and re-run the resolver tests.
const (
	// MinConfidence drops detections the engine itself barely believes.
	MinConfidence = 0.3

	// DedupIoU is the overlap above which two detections are considered
	// the same element; the higher-confidence one wins.
	DedupIoU = 0.5

	// MaxHashDistance is the pHash hamming distance under which a fresh
	// frame is treated as unchanged and the previous span list is reused
	// instead of re-running recognition.
	MaxHashDistance = 5
)

// TextSpan is one recognized text element. Box and Click are always in
// native coordinates: recognition runs on unscaled captures, so no
// inverse mapping ever applies.
type TextSpan struct {
	Text       string               `json:"text"`
	Box        geometry.Region      `json:"box"`
	Confidence float64              `json:"confidence"`
	Click      geometry.NativePoint `json:"click"`
}

// Capturer provides fresh native-resolution frames.
type Capturer interface {
	CaptureNative() (capture.FullCapture, error)
}

// Resolver turns raw engine output into ordered, deduplicated spans and
// answers text-location queries against the current screen.
type Resolver struct {
	engine   Engine
	capturer Capturer

	mu        sync.Mutex
	lastHash  *goimagehash.ImageHash
	lastSpans []TextSpan
	cached    bool
}

// New creates a resolver.
func New(engine Engine, capturer Capturer) *Resolver {
	return &Resolver{engine: engine, capturer: capturer}
}

// Recognize runs the engine over an image and returns spans in reading
// order, deduplicated. No text found is an empty slice, not an error.
func (r *Resolver) Recognize(img image.Image) ([]TextSpan, error) {
	words, err := r.engine.Words(img)
	if err != nil {
		return nil, err
	}

	spans := make([]TextSpan, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" || w.Confidence < MinConfidence {
			continue
		}
		spans = append(spans, TextSpan{
			Text:       w.Text,
			Box:        w.Box,
			Confidence: w.Confidence,
			Click:      w.Box.Center(),
		})
	}

	spans = dedupe(spans)
	sortReadingOrder(spans)
	return spans, nil
}

// RecognizeScreen captures the screen at native resolution and recognizes
// it. If the frame is perceptually unchanged from the last recognized one
// (hamming distance within MaxHashDistance), the previous span list is
// returned without re-running the engine.
func (r *Resolver) RecognizeScreen() ([]TextSpan, error) {
	frame, err := r.capturer.CaptureNative()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hash, hashErr := goimagehash.PerceptionHash(frame.Image)
	if hashErr == nil && r.cached && r.lastHash != nil {
		if dist, err := r.lastHash.Distance(hash); err == nil && dist <= MaxHashDistance {
			return append([]TextSpan(nil), r.lastSpans...), nil
		}
	}

	spans, err := r.Recognize(frame.Image)
	if err != nil {
		return nil, err
	}
	if hashErr == nil {
		r.lastHash = hash
		r.lastSpans = append([]TextSpan(nil), spans...)
		r.cached = true
	}
	return spans, nil
}

// FindOnScreen recognizes the current screen and matches query against it.
func (r *Resolver) FindOnScreen(query string) ([]TextSpan, error) {
	spans, err := r.RecognizeScreen()
	if err != nil {
		return nil, err
	}
	return Find(spans, query), nil
}

// VerifyOnScreen reports whether query matches any text on screen.
func (r *Resolver) VerifyOnScreen(query string) (bool, error) {
	matches, err := r.FindOnScreen(query)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// dedupe suppresses overlapping detections of the same element, keeping
// the higher-confidence span.
func dedupe(spans []TextSpan) []TextSpan {
	if len(spans) < 2 {
		return spans
	}

	byConf := append([]TextSpan(nil), spans...)
	sort.SliceStable(byConf, func(i, j int) bool {
		return byConf[i].Confidence > byConf[j].Confidence
	})

	kept := byConf[:0]
	for _, s := range byConf {
		overlap := false
		for _, k := range kept {
			if geometry.IoU(s.Box, k.Box) > DedupIoU {
				overlap = true
				break
			}
		}
		if !overlap {
			kept = append(kept, s)
		}
	}
	return kept
}

// sortReadingOrder sorts top-to-bottom, left-to-right. Two spans whose
// boxes overlap vertically by more than half the smaller height are
// treated as the same line and ordered by X.
func sortReadingOrder(spans []TextSpan) {
	sort.SliceStable(spans, func(i, j int) bool {
		a, b := spans[i], spans[j]
		if sameLine(a.Box, b.Box) {
			return a.Box.X < b.Box.X
		}
		return a.Box.Y < b.Box.Y
	})
}

func sameLine(a, b geometry.Region) bool {
	top := max(a.Y, b.Y)
	bottom := min(a.Y+a.Height, b.Y+b.Height)
	overlap := bottom - top
	if overlap <= 0 {
		return false
	}
	return overlap*2 > min(a.Height, b.Height)
}
