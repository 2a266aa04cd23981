package inference

import (
	"context"
	"fmt"
	"io"
)

// Labels is the fixed label set of the tumor classifier, in model output
// order. Index 2 is the no-tumor class.
var Labels = []string{"glioma", "meningioma", "no_tumor", "pituitary"}

// classifierInputSize is the square resolution the classifier expects.
const classifierInputSize = 224

// LogitSession runs a forward pass and returns one logit per label. Sessions
// must be safe for concurrent use; plain inference holds no shared state.
type LogitSession interface {
	Logits(ctx context.Context, input []float32) ([]float32, error)
}

// Prediction is the outcome of classifying one scan image.
type Prediction struct {
	Label string
	// Index is the position of Label in the model's output, needed by the
	// attribution generator.
	Index int
	// Confidence is the arg-max softmax probability on a 0-100 scale.
	Confidence float64
}

// Classifier produces a tumor-category prediction for an uploaded MRI image.
type Classifier struct {
	session LogitSession
}

func NewClassifier(session LogitSession) *Classifier {
	return &Classifier{session: session}
}

// Classify decodes, preprocesses, and runs the image through the model,
// returning the arg-max label and its confidence percentage.
func (c *Classifier) Classify(ctx context.Context, r io.Reader) (Prediction, error) {
	if c.session == nil {
		return Prediction{}, fmt.Errorf("classifier: %w", ErrModelUnavailable)
	}

	img, err := decodeImage(r)
	if err != nil {
		return Prediction{}, err
	}

	input := toTensor(img, classifierInputSize, imageNetNorm)
	logits, err := c.session.Logits(ctx, input)
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier forward pass: %w", err)
	}
	if len(logits) != len(Labels) {
		return Prediction{}, fmt.Errorf("classifier returned %d logits, expected %d", len(logits), len(Labels))
	}

	probs := softmax(logits)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	return Prediction{
		Label:      Labels[best],
		Index:      best,
		Confidence: probs[best] * 100,
	}, nil
}
