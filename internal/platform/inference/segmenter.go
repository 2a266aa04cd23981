package inference

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

// segmenterInputSize is the square resolution the segmentation model expects.
const segmenterInputSize = 512

// MaskSession runs the binary segmentation model and returns one logit per
// pixel of the model-resolution input. Safe for concurrent use.
type MaskSession interface {
	MaskLogits(ctx context.Context, input []float32) ([]float32, error)
}

// Segmenter produces binary lesion masks at the original image resolution.
type Segmenter struct {
	session MaskSession
}

func NewSegmenter(session MaskSession) *Segmenter {
	return &Segmenter{session: session}
}

// Segment runs the model and thresholds sigmoid(logit) at 0.5. The binary
// mask is resized back to the source resolution with nearest-neighbor
// interpolation so boundary pixels stay strictly black or white. Output is
// deterministic for a given input, which keeps repeated segmentation of the
// same scan byte-identical.
func (s *Segmenter) Segment(ctx context.Context, r io.Reader) (image.Image, error) {
	if s.session == nil {
		return nil, fmt.Errorf("segmenter: %w", ErrModelUnavailable)
	}

	original, err := decodeImage(r)
	if err != nil {
		return nil, err
	}

	input := toTensor(original, segmenterInputSize, identityNorm)
	logits, err := s.session.MaskLogits(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("segmentation forward pass: %w", err)
	}
	if len(logits) != segmenterInputSize*segmenterInputSize {
		return nil, fmt.Errorf("segmenter returned %d logits, expected %d",
			len(logits), segmenterInputSize*segmenterInputSize)
	}

	mask := image.NewGray(image.Rect(0, 0, segmenterInputSize, segmenterInputSize))
	for i, l := range logits {
		if sigmoid(l) > 0.5 {
			mask.Pix[i] = 255
		}
	}

	bounds := original.Bounds()
	resized := imaging.Resize(mask, bounds.Dx(), bounds.Dy(), imaging.NearestNeighbor)
	return resized, nil
}

func sigmoid(x float32) float64 {
	return 1 / (1 + math.Exp(-float64(x)))
}
