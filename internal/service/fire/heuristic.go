package fire

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// HeuristicParams holds the thresholds of the colour classifier.
type HeuristicParams struct {
	// Pixels brighter than this are fire-like regardless of hue.
	CoreBrightness float64
	// Warm pixels need R above WarmRed, R >= G >= B and brightness above WarmBrightness.
	WarmRed        float64
	WarmBrightness float64
	// The image is positive when the fire-like share of pixels exceeds MinFireRatio.
	MinFireRatio float64
	// Confidence = min(BaseConfidence + ratio*RatioGain, MaxConfidence).
	BaseConfidence float64
	RatioGain      float64
	MaxConfidence  float64
}

// DefaultHeuristicParams returns the thresholds the detector ships with.
func DefaultHeuristicParams() HeuristicParams {
	return HeuristicParams{
		CoreBrightness: 200,
		WarmRed:        100,
		WarmBrightness: 100,
		MinFireRatio:   0.003,
		BaseConfidence: 0.5,
		RatioGain:      30,
		MaxConfidence:  0.95,
	}
}

// Analysis is the intermediate state of a heuristic evaluation.
type Analysis struct {
	Width         int
	Height        int
	FirePixels    int
	Ratio         float64
	MaxBrightness float64
	Result        Result
}

var errNoColor = errors.New("image has no colour channels")

// Heuristic classifies images by counting bright or warm-coloured pixels.
type Heuristic struct {
	params HeuristicParams
}

// NewHeuristic creates a colour classifier with the given thresholds.
func NewHeuristic(params HeuristicParams) *Heuristic {
	return &Heuristic{params: params}
}

// Params returns the thresholds in use.
func (h *Heuristic) Params() HeuristicParams {
	return h.params
}

// Classify evaluates a decoded image. Images without colour channels are negative.
func (h *Heuristic) Classify(img image.Image) Result {
	analysis, err := h.Analyze(img)
	if err != nil {
		return Negative(SourceHeuristic)
	}
	return analysis.Result
}

// ClassifyBytes decodes and evaluates an encoded image; any failure is a negative result.
func (h *Heuristic) ClassifyBytes(data []byte) Result {
	analysis, err := h.AnalyzeBytes(data)
	if err != nil {
		return Negative(SourceHeuristic)
	}
	return analysis.Result
}

// AnalyzeBytes decodes data and runs Analyze on it.
func (h *Heuristic) AnalyzeBytes(data []byte) (*Analysis, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return h.Analyze(img)
}

// Analyze counts fire-like pixels and derives the verdict.
func (h *Heuristic) Analyze(img image.Image) (*Analysis, error) {
	if !hasColor(img) {
		return nil, errNoColor
	}

	bounds := img.Bounds()
	analysis := &Analysis{Width: bounds.Dx(), Height: bounds.Dy()}
	total := analysis.Width * analysis.Height
	if total == 0 {
		analysis.Result = Negative(SourceHeuristic)
		return analysis, nil
	}

	nrgba := imaging.Clone(img)
	pix := nrgba.Pix
	for i := 0; i+2 < len(pix); i += 4 {
		r, g, b := float64(pix[i]), float64(pix[i+1]), float64(pix[i+2])
		brightness := (r + g + b) / 3
		if brightness > analysis.MaxBrightness {
			analysis.MaxBrightness = brightness
		}
		if h.fireLike(r, g, b, brightness) {
			analysis.FirePixels++
		}
	}

	analysis.Ratio = float64(analysis.FirePixels) / float64(total)
	analysis.Result = h.verdict(analysis.Ratio)
	return analysis, nil
}

func (h *Heuristic) fireLike(r, g, b, brightness float64) bool {
	if brightness > h.params.CoreBrightness {
		return true
	}
	return r > h.params.WarmRed && r >= g && g >= b && brightness > h.params.WarmBrightness
}

func (h *Heuristic) verdict(ratio float64) Result {
	if ratio <= h.params.MinFireRatio {
		return Negative(SourceHeuristic)
	}

	confidence := h.params.BaseConfidence + ratio*h.params.RatioGain
	if confidence > h.params.MaxConfidence {
		confidence = h.params.MaxConfidence
	}
	return Result{Fire: true, Confidence: roundConfidence(confidence), Source: SourceHeuristic}
}

// hasColor rejects single-channel and paletted images.
func hasColor(img image.Image) bool {
	if _, ok := img.(*image.Paletted); ok {
		return false
	}
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return false
	}
	return true
}
