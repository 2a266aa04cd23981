package inference

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestToTensor_NormalizesChannels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 0, B: 127, A: 255})
		}
	}

	size := 4
	data := toTensor(img, size, identityNorm)
	if len(data) != 3*size*size {
		t.Fatalf("expected %d values, got %d", 3*size*size, len(data))
	}

	plane := size * size
	if math.Abs(float64(data[0])-1.0) > 1e-6 {
		t.Errorf("red channel: expected 1.0, got %f", data[0])
	}
	if data[plane] != 0 {
		t.Errorf("green channel: expected 0, got %f", data[plane])
	}
	if math.Abs(float64(data[2*plane])-127.0/255) > 1e-6 {
		t.Errorf("blue channel: expected %f, got %f", 127.0/255, data[2*plane])
	}
}

func TestToTensor_AppliesMeanStd(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	data := toTensor(img, 2, imageNetNorm)
	want := (1.0 - 0.485) / 0.229
	if math.Abs(float64(data[0])-want) > 1e-5 {
		t.Errorf("expected %f, got %f", want, data[0])
	}
}

func TestSoftmax_SumsToOne(t *testing.T) {
	probs := softmax([]float32{1, 2, 3, 4})

	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("expected probabilities to sum to 1, got %f", sum)
	}
	for i := 1; i < len(probs); i++ {
		if probs[i] <= probs[i-1] {
			t.Errorf("expected increasing probabilities for increasing logits")
		}
	}
}

func TestSoftmax_LargeLogitsStable(t *testing.T) {
	probs := softmax([]float32{1000, 1001, 999, 998})
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("probability %d is %f", i, p)
		}
	}
	if probs[1] < 0.5 {
		t.Errorf("expected arg-max probability above 0.5, got %f", probs[1])
	}
}

func TestJetColor_Endpoints(t *testing.T) {
	low := jetColor(0)
	if low.B <= low.R {
		t.Errorf("expected blue-dominant color at 0, got %+v", low)
	}

	high := jetColor(1)
	if high.R <= high.B {
		t.Errorf("expected red-dominant color at 1, got %+v", high)
	}

	mid := jetColor(0.5)
	if mid.G != 255 {
		t.Errorf("expected full green at 0.5, got %+v", mid)
	}

	// Out-of-range values clamp rather than wrap.
	if jetColor(-3) != jetColor(0) {
		t.Error("expected clamping below 0")
	}
	if jetColor(42) != jetColor(1) {
		t.Error("expected clamping above 1")
	}
	if jetColor(0.5).A != 255 {
		t.Error("expected opaque color")
	}
}
