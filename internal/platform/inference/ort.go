package inference

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// InitRuntime loads the ONNX Runtime shared library and initializes the
// process-wide environment. Must be called once before any session is
// created. libraryPath may be empty to use the platform default location.
func InitRuntime(libraryPath string) error {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// DestroyRuntime tears down the ONNX Runtime environment.
func DestroyRuntime() {
	_ = ort.DestroyEnvironment()
}

// ---------------------------------------------------------------------------
// Classification session
// ---------------------------------------------------------------------------

// ONNXClassifierSession is a LogitSession backed by the classification model.
// Every call builds its own input and output tensors, so the session is
// reentrant and needs no locking.
type ONNXClassifierSession struct {
	session *ort.DynamicAdvancedSession
}

// NewClassifierSession loads the classification model. The model takes a
// 1x3x224x224 input named "input" and produces a logit vector named "logits".
func NewClassifierSession(modelPath string) (*ONNXClassifierSession, error) {
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"logits"}, nil)
	if err != nil {
		return nil, fmt.Errorf("load classifier model %s: %w", modelPath, err)
	}
	return &ONNXClassifierSession{session: session}, nil
}

func (s *ONNXClassifierSession) Logits(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.session == nil {
		return nil, ErrModelUnavailable
	}

	in, err := ort.NewTensor(ort.NewShape(1, 3, classifierInputSize, classifierInputSize), input)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer in.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("run classifier: %w", err)
	}
	out := outputs[0].(*ort.Tensor[float32])
	defer out.Destroy()

	logits := make([]float32, len(out.GetData()))
	copy(logits, out.GetData())
	return logits, nil
}

func (s *ONNXClassifierSession) Close() {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}

// ---------------------------------------------------------------------------
// Attribution capture session
// ---------------------------------------------------------------------------

// ONNXCaptureSession is a CaptureSession backed by an export of the same
// classifier that additionally exposes the last convolutional activations
// ("features", 1xCxHxW) and the classification head weight matrix
// ("fc_weight", classes x C).
//
// The classifier head is global average pooling followed by a single linear
// layer, so the gradient of a class logit with respect to an activation cell
// is the head weight for that channel divided by the spatial cell count. That
// lets Backward be computed from the weights captured on the last Forward
// call without a second model run. The captured features and weights live on
// the session between the two calls, which is exactly why callers must not
// interleave Forward/Backward pairs.
type ONNXCaptureSession struct {
	session *ort.DynamicAdvancedSession

	// Capture state written by Forward, consumed by Backward.
	features *FeatureMap
	fcWeight []float32
	classes  int
}

// NewCaptureSession loads the attribution export of the classifier model.
func NewCaptureSession(modelPath string) (*ONNXCaptureSession, error) {
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"logits", "features", "fc_weight"}, nil)
	if err != nil {
		return nil, fmt.Errorf("load attribution model %s: %w", modelPath, err)
	}
	return &ONNXCaptureSession{session: session}, nil
}

func (s *ONNXCaptureSession) Forward(ctx context.Context, input []float32) ([]float32, *FeatureMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if s.session == nil {
		return nil, nil, ErrModelUnavailable
	}

	in, err := ort.NewTensor(ort.NewShape(1, 3, classifierInputSize, classifierInputSize), input)
	if err != nil {
		return nil, nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer in.Destroy()

	outputs := []ort.Value{nil, nil, nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, nil, fmt.Errorf("run attribution forward pass: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	logitT := outputs[0].(*ort.Tensor[float32])
	featT := outputs[1].(*ort.Tensor[float32])
	weightT := outputs[2].(*ort.Tensor[float32])

	logits := make([]float32, len(logitT.GetData()))
	copy(logits, logitT.GetData())

	featShape := featT.GetShape()
	if len(featShape) != 4 {
		return nil, nil, fmt.Errorf("feature tensor has rank %d, expected 4", len(featShape))
	}
	features := &FeatureMap{
		Channels: int(featShape[1]),
		Height:   int(featShape[2]),
		Width:    int(featShape[3]),
		Data:     make([]float32, len(featT.GetData())),
	}
	copy(features.Data, featT.GetData())

	fcWeight := make([]float32, len(weightT.GetData()))
	copy(fcWeight, weightT.GetData())

	s.features = features
	s.fcWeight = fcWeight
	s.classes = len(logits)

	return logits, features, nil
}

func (s *ONNXCaptureSession) Backward(ctx context.Context, classIndex int) (*FeatureMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.features == nil {
		return nil, fmt.Errorf("no forward pass captured")
	}
	if classIndex < 0 || classIndex >= s.classes {
		return nil, fmt.Errorf("class index %d out of range for %d classes", classIndex, s.classes)
	}

	f := s.features
	plane := f.Height * f.Width
	grads := &FeatureMap{
		Channels: f.Channels,
		Height:   f.Height,
		Width:    f.Width,
		Data:     make([]float32, len(f.Data)),
	}
	for c := 0; c < f.Channels; c++ {
		g := s.fcWeight[classIndex*f.Channels+c] / float32(plane)
		for i := 0; i < plane; i++ {
			grads.Data[c*plane+i] = g
		}
	}
	return grads, nil
}

func (s *ONNXCaptureSession) Close() {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	s.features = nil
	s.fcWeight = nil
}

// ---------------------------------------------------------------------------
// Segmentation session
// ---------------------------------------------------------------------------

// ONNXMaskSession is a MaskSession backed by the binary segmentation model.
// Reentrant, per-call tensors.
type ONNXMaskSession struct {
	session *ort.DynamicAdvancedSession
}

// NewSegmenterSession loads the segmentation model. The model takes a
// 1x3x512x512 input named "input" and produces a 1x1x512x512 logit map
// named "mask".
func NewSegmenterSession(modelPath string) (*ONNXMaskSession, error) {
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"mask"}, nil)
	if err != nil {
		return nil, fmt.Errorf("load segmentation model %s: %w", modelPath, err)
	}
	return &ONNXMaskSession{session: session}, nil
}

func (s *ONNXMaskSession) MaskLogits(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.session == nil {
		return nil, ErrModelUnavailable
	}

	in, err := ort.NewTensor(ort.NewShape(1, 3, segmenterInputSize, segmenterInputSize), input)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer in.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("run segmenter: %w", err)
	}
	out := outputs[0].(*ort.Tensor[float32])
	defer out.Destroy()

	logits := make([]float32, len(out.GetData()))
	copy(logits, out.GetData())
	return logits, nil
}

func (s *ONNXMaskSession) Close() {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}
