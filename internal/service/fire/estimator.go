package fire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"firewatch/internal/logger"
)

// ErrImageNotFound is returned by EstimateFile for a missing input file.
var ErrImageNotFound = errors.New("image not found")

// ErrCorruptImage is returned by EstimateFile for a file that is not a decodable image.
var ErrCorruptImage = errors.New("image could not be decoded")

// Mode is the set of classifiers available to an Estimator.
type Mode int

const (
	// ModeHeuristic uses only the colour heuristic.
	ModeHeuristic Mode = iota
	// ModeHybrid fuses the model-based classifier with the heuristic.
	ModeHybrid
	// ModeMock fakes verdicts from the image name.
	ModeMock
)

func (m Mode) String() string {
	switch m {
	case ModeHybrid:
		return "hybrid"
	case ModeMock:
		return "mock"
	default:
		return "heuristic"
	}
}

// Probe reports which classifiers can run. A nil or unloaded detector means heuristic only.
func Probe(mock bool, detector ObjectDetector) Mode {
	if mock {
		return ModeMock
	}
	if detector != nil && detector.Ready() {
		return ModeHybrid
	}
	return ModeHeuristic
}

// Options configures an Estimator.
type Options struct {
	Mock           bool
	Heuristic      HeuristicParams
	ModelThreshold float64
	Keywords       []string
}

// Estimator produces a fire verdict for a frame and never fails: classifier
// errors degrade to a weaker classifier or to a negative result.
type Estimator struct {
	mode      Mode
	heuristic *Heuristic
	model     *ModelClassifier
	mock      *Mock
	logger    *logger.Logger
}

// NewEstimator builds an Estimator for the capabilities detected from opts and detector.
func NewEstimator(opts Options, detector ObjectDetector, logger *logger.Logger) *Estimator {
	e := &Estimator{
		mode:      Probe(opts.Mock, detector),
		heuristic: NewHeuristic(opts.Heuristic),
		logger:    logger,
	}

	switch e.mode {
	case ModeMock:
		e.mock = NewMock()
	case ModeHybrid:
		e.model = NewModelClassifier(detector, opts.ModelThreshold, opts.Keywords)
	}

	return e
}

// WithMock replaces the mock classifier, used to make mock runs reproducible.
func (e *Estimator) WithMock(m *Mock) *Estimator {
	e.mock = m
	return e
}

// Mode returns the classifiers in use.
func (e *Estimator) Mode() Mode {
	return e.mode
}

// Estimate classifies a frame.
func (e *Estimator) Estimate(ctx context.Context, frame Frame) Result {
	switch e.mode {
	case ModeMock:
		return e.mock.Classify(frame.Label)
	case ModeHybrid:
		heuristic := e.estimateHeuristic(frame)
		model, err := e.estimateModel(ctx, frame)
		if err != nil {
			e.logger.Warning("Model classifier failed for %s, using colour heuristic: %v", frame.Label, err)
			return heuristic
		}
		fused := Fuse(model, heuristic)
		e.logger.Debug("Fused verdict for %s: model=%+v heuristic=%+v -> %+v", frame.Label, model, heuristic, fused)
		return fused
	default:
		return e.estimateHeuristic(frame)
	}
}

// EstimateFile classifies the image stored at path. The mock only looks at
// the file name; the other modes reject files that do not decode.
func (e *Estimator) EstimateFile(ctx context.Context, path string) (Result, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Negative(SourceHeuristic), fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
		return Negative(SourceHeuristic), fmt.Errorf("failed to stat image: %w", err)
	}

	label := filepath.Base(path)
	if e.mode == ModeMock {
		return e.mock.Classify(label), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Negative(SourceHeuristic), fmt.Errorf("failed to read image: %w", err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return Negative(SourceHeuristic), fmt.Errorf("%w: %s: %v", ErrCorruptImage, path, err)
	}

	return e.Estimate(ctx, Frame{Label: label, Data: data}), nil
}

func (e *Estimator) estimateHeuristic(frame Frame) Result {
	analysis, err := e.heuristic.AnalyzeBytes(frame.Data)
	if err != nil {
		e.logger.Debug("Colour heuristic could not evaluate %s: %v", frame.Label, err)
		return Negative(SourceHeuristic)
	}

	e.logger.Debug("Image %s: %dx%d, fire pixels %d / %d = %.4f, max brightness %.1f",
		frame.Label, analysis.Width, analysis.Height, analysis.FirePixels,
		analysis.Width*analysis.Height, analysis.Ratio, analysis.MaxBrightness)
	return analysis.Result
}

func (e *Estimator) estimateModel(ctx context.Context, frame Frame) (Result, error) {
	detections, err := e.model.Detect(ctx, frame.Data)
	if err != nil {
		return Negative(SourceModel), err
	}

	for _, d := range detections {
		e.logger.Debug("Object: %s (confidence: %.2f)", d.Label, d.Confidence)
	}
	return e.model.Evaluate(detections), nil
}
