// Package yolo decodes raw YOLOv8 detection tensors into labelled boxes.
package yolo

import (
	"image"
	"sort"

	"firewatch/internal/service/fire"
)

// Params configures YOLOv8 post processing.
type Params struct {
	// InputSize is the square network input edge in pixels.
	InputSize int
	// BoxThreshold is the minimum class score for a candidate box.
	BoxThreshold float32
	// NMSThreshold is the IoU above which the weaker of two boxes is dropped.
	NMSThreshold float32
	// MaxObjectNumber caps the number of returned detections.
	MaxObjectNumber int
}

// DefaultParams returns the settings used with the stock 640x640 exports.
func DefaultParams() Params {
	return Params{
		InputSize:       640,
		BoxThreshold:    0.25,
		NMSThreshold:    0.45,
		MaxObjectNumber: 64,
	}
}

// Output is a YOLOv8 head output of shape [1, 4+classes, anchors], row major.
type Output struct {
	Data    []float32
	Rows    int
	Anchors int
}

// candidate is a decoded box before suppression.
type candidate struct {
	class int
	score float32
	box   image.Rectangle
}

// Decode converts out into detections scaled to a frameWidth x frameHeight image.
// Each anchor contributes its best class when that score passes BoxThreshold.
func Decode(out Output, labels []string, frameWidth, frameHeight int, p Params) []fire.Detection {
	classes := out.Rows - 4
	if classes <= 0 || out.Anchors <= 0 || len(out.Data) < out.Rows*out.Anchors {
		return nil
	}

	scaleX := float32(frameWidth) / float32(p.InputSize)
	scaleY := float32(frameHeight) / float32(p.InputSize)
	at := func(row, anchor int) float32 {
		return out.Data[row*out.Anchors+anchor]
	}

	var candidates []candidate
	for a := 0; a < out.Anchors; a++ {
		bestClass, bestScore := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := at(4+c, a); s > bestScore {
				bestClass, bestScore = c, s
			}
		}
		if bestClass < 0 || bestScore < p.BoxThreshold {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		left := int((cx - w/2) * scaleX)
		top := int((cy - h/2) * scaleY)
		right := int((cx + w/2) * scaleX)
		bottom := int((cy + h/2) * scaleY)

		candidates = append(candidates, candidate{
			class: bestClass,
			score: bestScore,
			box:   image.Rect(left, top, right, bottom),
		})
	}

	kept := nms(candidates, p.NMSThreshold)
	if p.MaxObjectNumber > 0 && len(kept) > p.MaxObjectNumber {
		kept = kept[:p.MaxObjectNumber]
	}

	detections := make([]fire.Detection, 0, len(kept))
	for _, c := range kept {
		detections = append(detections, fire.Detection{
			Label:      Label(labels, c.class),
			Confidence: float64(c.score),
			Box:        c.box,
		})
	}
	return detections
}

// nms applies per-class non maximum suppression, strongest boxes first.
func nms(candidates []candidate, iouThresh float32) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	keep := make([]candidate, 0, len(candidates))
	used := make([]bool, len(candidates))

	for i := range candidates {
		if used[i] {
			continue
		}
		keep = append(keep, candidates[i])

		for j := i + 1; j < len(candidates); j++ {
			if used[j] || candidates[j].class != candidates[i].class {
				continue
			}
			if iou(candidates[i].box, candidates[j].box) > iouThresh {
				used[j] = true
			}
		}
	}
	return keep
}

// iou computes the Intersection-over-Union of two boxes.
func iou(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	interArea := float32(inter.Dx() * inter.Dy())
	union := float32(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
