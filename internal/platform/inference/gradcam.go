package inference

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/disintegration/imaging"
)

// FeatureMap is a CxHxW activation or gradient tensor captured from the
// model's last convolutional layer.
type FeatureMap struct {
	Channels int
	Height   int
	Width    int
	Data     []float32 // channel-major, len = Channels*Height*Width
}

// At returns the value for channel c at (y, x).
func (f *FeatureMap) At(c, y, x int) float32 {
	return f.Data[c*f.Height*f.Width+y*f.Width+x]
}

// CaptureSession exposes the model internals the attribution algorithm
// needs: a forward pass that also captures the late convolutional
// activations, and a backward pass that returns the gradient of a chosen
// class logit with respect to those captured activations.
//
// Backward operates on state captured by the most recent Forward call on the
// same session. That capture state is owned by the session, not the request:
// interleaving Forward/Backward pairs from two callers would compute one
// image's gradients against the other image's activations. Attributor
// serializes access; implementations do not need their own locking.
type CaptureSession interface {
	Forward(ctx context.Context, input []float32) (logits []float32, activations *FeatureMap, err error)
	Backward(ctx context.Context, classIndex int) (gradients *FeatureMap, err error)
}

// Attributor computes gradient-weighted class-activation heat maps and
// blends them over the source image.
type Attributor struct {
	// mu serializes the Forward/Backward pair. The capture state inside the
	// session is global to the model instance, so at most one attribution
	// may be in flight at a time. Plain classification is unaffected.
	mu      sync.Mutex
	session CaptureSession
}

func NewAttributor(session CaptureSession) *Attributor {
	return &Attributor{session: session}
}

// Explain runs Grad-CAM for the given class and returns the original image
// with the colorized heat map alpha-blended over it at 50% opacity.
func (a *Attributor) Explain(ctx context.Context, r io.Reader, classIndex int) (image.Image, error) {
	if a.session == nil {
		return nil, fmt.Errorf("attributor: %w", ErrModelUnavailable)
	}

	original, err := decodeImage(r)
	if err != nil {
		return nil, err
	}
	input := toTensor(original, classifierInputSize, imageNetNorm)

	activations, gradients, err := a.capture(ctx, input, classIndex)
	if err != nil {
		return nil, err
	}
	if activations.Channels != gradients.Channels ||
		activations.Height != gradients.Height ||
		activations.Width != gradients.Width {
		return nil, fmt.Errorf("activation shape %dx%dx%d does not match gradient shape %dx%dx%d",
			activations.Channels, activations.Height, activations.Width,
			gradients.Channels, gradients.Height, gradients.Width)
	}

	cam := classActivationMap(activations, gradients)

	bounds := original.Bounds()
	heat := colorizeJet(cam, activations.Width, activations.Height)
	heat = imaging.Resize(heat, bounds.Dx(), bounds.Dy(), imaging.Linear)

	overlay := imaging.Overlay(imaging.Clone(original), heat, image.Pt(0, 0), 0.5)
	return overlay, nil
}

// capture runs the locked Forward/Backward pair.
func (a *Attributor) capture(ctx context.Context, input []float32, classIndex int) (*FeatureMap, *FeatureMap, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	logits, activations, err := a.session.Forward(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("attribution forward pass: %w", err)
	}
	if classIndex < 0 || classIndex >= len(logits) {
		return nil, nil, fmt.Errorf("class index %d out of range for %d logits", classIndex, len(logits))
	}

	gradients, err := a.session.Backward(ctx, classIndex)
	if err != nil {
		return nil, nil, fmt.Errorf("attribution backward pass: %w", err)
	}
	return activations, gradients, nil
}

// classActivationMap reduces activations and gradients to a normalized HxW
// saliency map: each channel is weighted by its spatially averaged gradient,
// the weighted sum is clipped at zero, and the result is scaled to [0,1].
func classActivationMap(activations, gradients *FeatureMap) []float64 {
	h, w, ch := activations.Height, activations.Width, activations.Channels
	plane := float32(h * w)

	// Channel importance: spatial mean of the gradient.
	weights := make([]float32, ch)
	for c := 0; c < ch; c++ {
		var sum float32
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sum += gradients.At(c, y, x)
			}
		}
		weights[c] = sum / plane
	}

	cam := make([]float64, h*w)
	var maxVal float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v float32
			for c := 0; c < ch; c++ {
				v += weights[c] * activations.At(c, y, x)
			}
			if v < 0 {
				v = 0 // ReLU
			}
			cam[y*w+x] = float64(v)
			if float64(v) > maxVal {
				maxVal = float64(v)
			}
		}
	}

	if maxVal > 0 {
		for i := range cam {
			cam[i] /= maxVal
		}
	}
	return cam
}

// colorizeJet maps a normalized [0,1] saliency map to a jet-palette image.
func colorizeJet(cam []float64, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, jetColor(cam[y*width+x]))
		}
	}
	return img
}
