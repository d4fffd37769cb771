package fire

import (
	"context"
	"strings"
)

// DefaultFireKeywords are the class-name fragments treated as fire evidence.
var DefaultFireKeywords = []string{"fire", "flame", "smoke", "burn"}

// DefaultModelThreshold is the minimum box confidence for a qualifying detection.
const DefaultModelThreshold = 0.5

// ModelClassifier turns object detections into a fire verdict.
type ModelClassifier struct {
	detector  ObjectDetector
	threshold float64
	keywords  []string
}

// NewModelClassifier wraps detector. A zero threshold or empty keyword list selects the defaults.
func NewModelClassifier(detector ObjectDetector, threshold float64, keywords []string) *ModelClassifier {
	if threshold <= 0 {
		threshold = DefaultModelThreshold
	}
	if len(keywords) == 0 {
		keywords = DefaultFireKeywords
	}

	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		lowered = append(lowered, strings.ToLower(k))
	}

	return &ModelClassifier{detector: detector, threshold: threshold, keywords: lowered}
}

// Threshold returns the minimum qualifying confidence.
func (m *ModelClassifier) Threshold() float64 {
	return m.threshold
}

// Detect runs the underlying detector.
func (m *ModelClassifier) Detect(ctx context.Context, data []byte) ([]Detection, error) {
	return m.detector.Detect(ctx, data)
}

// Classify runs the detector and evaluates its detections.
func (m *ModelClassifier) Classify(ctx context.Context, data []byte) (Result, error) {
	detections, err := m.Detect(ctx, data)
	if err != nil {
		return Negative(SourceModel), err
	}
	return m.Evaluate(detections), nil
}

// Evaluate reports fire when any qualifying detection exists, with the highest
// qualifying confidence.
func (m *ModelClassifier) Evaluate(detections []Detection) Result {
	best := 0.0
	found := false
	for _, d := range detections {
		if !m.Qualifies(d) {
			continue
		}
		found = true
		if d.Confidence > best {
			best = d.Confidence
		}
	}

	if !found {
		return Negative(SourceModel)
	}
	return Result{Fire: true, Confidence: roundConfidence(best), Source: SourceModel}
}

// Qualifies reports whether d names a fire class with enough confidence.
func (m *ModelClassifier) Qualifies(d Detection) bool {
	if d.Confidence < m.threshold {
		return false
	}
	label := strings.ToLower(d.Label)
	for _, k := range m.keywords {
		if strings.Contains(label, k) {
			return true
		}
	}
	return false
}
