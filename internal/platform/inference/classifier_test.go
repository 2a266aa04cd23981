package inference

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

// testImage encodes a solid-color PNG for use as an upload payload.
func testImage(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

type fakeLogitSession struct {
	logits []float32
	err    error
}

func (s *fakeLogitSession) Logits(_ context.Context, _ []float32) ([]float32, error) {
	return s.logits, s.err
}

func TestClassify_ArgMax(t *testing.T) {
	session := &fakeLogitSession{logits: []float32{0.1, 2.0, 0.3, 0.2}}
	c := NewClassifier(session)

	img := testImage(t, 64, 64, color.NRGBA{R: 120, G: 120, B: 120, A: 255})
	pred, err := c.Classify(context.Background(), bytes.NewReader(img))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pred.Label != "meningioma" {
		t.Errorf("expected meningioma, got %s", pred.Label)
	}
	if pred.Index != 1 {
		t.Errorf("expected index 1, got %d", pred.Index)
	}
	if pred.Confidence <= 0 || pred.Confidence > 100 {
		t.Errorf("confidence %f outside (0,100]", pred.Confidence)
	}

	// softmax([0.1, 2.0, 0.3, 0.2]) arg-max probability, as a percentage
	want := 100 * math.Exp(2.0) / (math.Exp(0.1) + math.Exp(2.0) + math.Exp(0.3) + math.Exp(0.2))
	if math.Abs(pred.Confidence-want) > 0.01 {
		t.Errorf("expected confidence %.4f, got %.4f", want, pred.Confidence)
	}
}

func TestClassify_UndecodableImage(t *testing.T) {
	c := NewClassifier(&fakeLogitSession{logits: []float32{1, 0, 0, 0}})

	_, err := c.Classify(context.Background(), strings.NewReader("not an image"))
	if !errors.Is(err, ErrImageDecode) {
		t.Errorf("expected ErrImageDecode, got %v", err)
	}
	if !IsInferenceError(err) {
		t.Error("expected IsInferenceError to be true")
	}
}

func TestClassify_NilSession(t *testing.T) {
	c := NewClassifier(nil)

	img := testImage(t, 8, 8, color.NRGBA{A: 255})
	_, err := c.Classify(context.Background(), bytes.NewReader(img))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestClassify_WrongLogitCount(t *testing.T) {
	c := NewClassifier(&fakeLogitSession{logits: []float32{1, 2}})

	img := testImage(t, 8, 8, color.NRGBA{A: 255})
	if _, err := c.Classify(context.Background(), bytes.NewReader(img)); err == nil {
		t.Fatal("expected error for wrong logit count")
	}
}

func TestClassify_SessionError(t *testing.T) {
	c := NewClassifier(&fakeLogitSession{err: ErrModelUnavailable})

	img := testImage(t, 8, 8, color.NRGBA{A: 255})
	_, err := c.Classify(context.Background(), bytes.NewReader(img))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}
