package inference

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

// Normalization holds per-channel mean and standard deviation applied after
// scaling pixel values to [0,1].
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// imageNetNorm is the normalization the classifier was trained with.
var imageNetNorm = Normalization{
	Mean: [3]float32{0.485, 0.456, 0.406},
	Std:  [3]float32{0.229, 0.224, 0.225},
}

// identityNorm leaves pixels as [0,1] floats. The segmentation model was
// trained without channel normalization.
var identityNorm = Normalization{
	Mean: [3]float32{0, 0, 0},
	Std:  [3]float32{1, 1, 1},
}

// decodeImage decodes an uploaded image. Any decode failure is reported as
// ErrImageDecode so callers can distinguish bad input from engine failures.
func decodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return img, nil
}

// toTensor resizes img to size x size and converts it to a 1x3xHxW
// channel-first float32 tensor with the given normalization.
func toTensor(img image.Image, size int, norm Normalization) []float32 {
	resized := imaging.Resize(img, size, size, imaging.Linear)

	data := make([]float32, 3*size*size)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			// NRGBA pixels, 8 bits per channel
			px := resized.NRGBAAt(x, y)
			idx := y*size + x
			data[0*plane+idx] = (float32(px.R)/255 - norm.Mean[0]) / norm.Std[0]
			data[1*plane+idx] = (float32(px.G)/255 - norm.Mean[1]) / norm.Std[1]
			data[2*plane+idx] = (float32(px.B)/255 - norm.Mean[2]) / norm.Std[2]
		}
	}
	return data
}

// softmax converts logits to probabilities, shifted by the max logit for
// numerical stability.
func softmax(logits []float32) []float64 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l - maxLogit))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
