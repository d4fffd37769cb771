// Package fire estimates whether a still image shows fire.
//
// Three classifiers are available: a colour heuristic that needs nothing but
// the decoded pixels, a classifier backed by an object detector, and a mock
// used for demos. Estimator picks among them from the capabilities detected
// at start-up and fuses the heuristic and model verdicts.
package fire

import (
	"context"
	"image"
	"math"
)

// Source identifies which classifier produced a Result.
type Source string

const (
	SourceHeuristic Source = "heuristic-color"
	SourceModel     Source = "model-based"
	SourceMock      Source = "mock"
)

// Result is the verdict for a single image.
type Result struct {
	Fire       bool    `json:"fire"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source,omitempty"`
}

// Negative returns a no-fire result attributed to source.
func Negative(source Source) Result {
	return Result{Fire: false, Confidence: 0.0, Source: source}
}

// Detection is a single box reported by an ObjectDetector.
type Detection struct {
	Label      string
	Confidence float64
	Box        image.Rectangle
}

// ObjectDetector runs a trained detection model on encoded image bytes.
type ObjectDetector interface {
	Detect(ctx context.Context, data []byte) ([]Detection, error)
	// Ready reports whether a model is loaded and Detect can succeed.
	Ready() bool
}

// Frame is an encoded image plus the name it is known by (file path or camera).
type Frame struct {
	Label string
	Data  []byte
}

// roundConfidence clamps v to [0,1] and rounds it to two decimals.
func roundConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		v = 1
	}
	return math.Round(v*100) / 100
}
