package fire

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Mock fakes a verdict from the image name: names containing "fire" are positive.
type Mock struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMock creates a Mock seeded from the clock.
func NewMock() *Mock {
	return NewMockWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewMockWithSource creates a Mock drawing from src.
func NewMockWithSource(src rand.Source) *Mock {
	return &Mock{rng: rand.New(src)}
}

// Classify returns a confidence in [0.70, 0.95] for fire names and [0.00, 0.30] otherwise.
func (m *Mock) Classify(label string) Result {
	if strings.Contains(strings.ToLower(label), "fire") {
		return Result{Fire: true, Confidence: roundConfidence(m.uniform(0.7, 0.95)), Source: SourceMock}
	}
	return Result{Fire: false, Confidence: roundConfidence(m.uniform(0.0, 0.3)), Source: SourceMock}
}

func (m *Mock) uniform(lo, hi float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo + m.rng.Float64()*(hi-lo)
}
