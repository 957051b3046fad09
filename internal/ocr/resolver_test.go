package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/deskpilot/platform/internal/capture"
	"github.com/deskpilot/platform/internal/errors"
	"github.com/deskpilot/platform/internal/geometry"
)

type fakeEngine struct {
	words []Word
	err   error
	calls int
}

func (f *fakeEngine) Words(img image.Image) ([]Word, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.words, nil
}

type fakeCapturer struct {
	frames []image.Image
	next   int
}

func (f *fakeCapturer) CaptureNative() (capture.FullCapture, error) {
	img := f.frames[f.next]
	if f.next < len(f.frames)-1 {
		f.next++
	}
	size := geometry.Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	return capture.FullCapture{
		Image:       img,
		NativeSize:  size,
		OutputSize:  size,
		ScaleFactor: 1.0,
	}, nil
}

func word(text string, x, y, w, h int, conf float64) Word {
	return Word{Text: text, Box: geometry.Region{X: x, Y: y, Width: w, Height: h}, Confidence: conf}
}

// fill paints rect solid black on an otherwise white frame.
func fill(w, h int, rect image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if image.Pt(x, y).In(rect) {
				c = color.NRGBA{A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestRecognizeEmptyResultIsNotError(t *testing.T) {
	r := New(&fakeEngine{}, nil)

	spans, err := r.Recognize(fill(32, 32, image.Rectangle{}))
	if err != nil {
		t.Fatalf("Recognize error: %v", err)
	}
	if len(spans) != 0 {
		t.Errorf("got %d spans, want 0", len(spans))
	}
}

func TestRecognizeFiltersNoiseAndLowConfidence(t *testing.T) {
	eng := &fakeEngine{words: []Word{
		word("OK", 100, 100, 40, 20, 0.95),
		word("   ", 0, 0, 10, 10, 0.99),
		word("ghost", 50, 50, 40, 20, 0.1),
	}}
	r := New(eng, nil)

	spans, err := r.Recognize(fill(256, 256, image.Rectangle{}))
	if err != nil {
		t.Fatalf("Recognize error: %v", err)
	}
	if len(spans) != 1 || spans[0].Text != "OK" {
		t.Fatalf("spans = %+v, want only OK", spans)
	}
	if spans[0].Click != (geometry.NativePoint{X: 120, Y: 110}) {
		t.Errorf("click = %+v, want (120,110)", spans[0].Click)
	}
}

func TestRecognizeReadingOrder(t *testing.T) {
	eng := &fakeEngine{words: []Word{
		word("world", 80, 10, 50, 20, 0.9),
		word("second", 10, 60, 60, 20, 0.9),
		word("hello", 10, 12, 50, 20, 0.9), // same line as world, further left
	}}
	r := New(eng, nil)

	spans, err := r.Recognize(fill(256, 256, image.Rectangle{}))
	if err != nil {
		t.Fatalf("Recognize error: %v", err)
	}

	got := make([]string, len(spans))
	for i, s := range spans {
		got[i] = s.Text
	}
	want := []string{"hello", "world", "second"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reading order = %v, want %v", got, want)
		}
	}
}

func TestRecognizeDeduplicatesOverlaps(t *testing.T) {
	eng := &fakeEngine{words: []Word{
		word("Submit", 100, 100, 80, 24, 0.6),
		word("Submit", 102, 101, 80, 24, 0.9), // same element, better read
		word("Reset", 300, 100, 60, 24, 0.8),
	}}
	r := New(eng, nil)

	spans, err := r.Recognize(fill(512, 256, image.Rectangle{}))
	if err != nil {
		t.Fatalf("Recognize error: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2 after dedup", len(spans))
	}
	for _, s := range spans {
		if s.Text == "Submit" && s.Confidence != 0.9 {
			t.Errorf("dedup kept confidence %v, want the 0.9 detection", s.Confidence)
		}
	}
}

func TestRecognizeEngineErrorSurfaces(t *testing.T) {
	eng := &fakeEngine{err: errors.New(errors.ModelUnavailable, "tesseract not installed")}
	r := New(eng, nil)

	_, err := r.Recognize(fill(32, 32, image.Rectangle{}))
	if !errors.IsKind(err, errors.ModelUnavailable) {
		t.Errorf("error kind = %v, want ModelUnavailable", errors.KindOf(err))
	}
}

func TestRecognizeScreenReusesUnchangedFrame(t *testing.T) {
	frame := fill(256, 256, image.Rect(0, 0, 128, 256))
	eng := &fakeEngine{words: []Word{word("OK", 100, 100, 40, 20, 0.95)}}
	r := New(eng, &fakeCapturer{frames: []image.Image{frame}})

	first, err := r.RecognizeScreen()
	if err != nil {
		t.Fatalf("first RecognizeScreen error: %v", err)
	}
	second, err := r.RecognizeScreen()
	if err != nil {
		t.Fatalf("second RecognizeScreen error: %v", err)
	}

	if eng.calls != 1 {
		t.Errorf("engine ran %d times on an unchanged frame, want 1", eng.calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0] != first[0] {
		t.Errorf("cached spans %+v differ from first %+v", second, first)
	}
}

func TestRecognizeScreenRerunsOnChangedFrame(t *testing.T) {
	frames := []image.Image{
		fill(256, 256, image.Rect(0, 0, 256, 128)), // top half black
		fill(256, 256, image.Rect(0, 128, 256, 256)), // bottom half black
	}
	eng := &fakeEngine{words: []Word{word("OK", 100, 100, 40, 20, 0.95)}}
	r := New(eng, &fakeCapturer{frames: frames})

	if _, err := r.RecognizeScreen(); err != nil {
		t.Fatalf("first RecognizeScreen error: %v", err)
	}
	if _, err := r.RecognizeScreen(); err != nil {
		t.Fatalf("second RecognizeScreen error: %v", err)
	}

	if eng.calls != 2 {
		t.Errorf("engine ran %d times across two distinct frames, want 2", eng.calls)
	}
}

func TestFindOnScreen(t *testing.T) {
	frame := fill(256, 256, image.Rect(10, 10, 120, 40))
	eng := &fakeEngine{words: []Word{
		word("OK", 100, 100, 40, 20, 0.95),
		word("Cancel", 200, 100, 80, 20, 0.9),
	}}
	r := New(eng, &fakeCapturer{frames: []image.Image{frame}})

	got, err := r.FindOnScreen("cancel")
	if err != nil {
		t.Fatalf("FindOnScreen error: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Cancel" {
		t.Fatalf("FindOnScreen = %+v, want Cancel", got)
	}

	found, err := r.VerifyOnScreen("nowhere")
	if err != nil {
		t.Fatalf("VerifyOnScreen error: %v", err)
	}
	if found {
		t.Error("VerifyOnScreen should be false for absent text")
	}
}
