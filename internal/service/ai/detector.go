package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"firewatch/internal/config"
	"firewatch/internal/logger"
	"firewatch/internal/service/ai/yolo"
	"firewatch/internal/service/fire"

	"gocv.io/x/gocv"
)

// DetectorService runs a YOLOv8 ONNX model through the OpenCV DNN module.
// It implements fire.ObjectDetector.
type DetectorService struct {
	net       gocv.Net
	ready     bool
	modelPath string
	labels    []string
	params    yolo.Params
	mu        sync.Mutex
	logger    *logger.Logger
}

// NewDetectorService loads the configured model. A missing or broken model is
// logged and leaves the service not ready, so callers fall back to the heuristic.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) *DetectorService {
	service := &DetectorService{
		modelPath: cfg.ActiveModelPath(),
		labels:    yolo.COCOLabels,
		params:    yolo.DefaultParams(),
		logger:    logger,
	}
	// keep low-scoring boxes out before the keyword filter runs
	if cfg.ConfidenceThreshold > 0 {
		service.params.BoxThreshold = float32(cfg.ConfidenceThreshold)
	}

	if cfg.LabelsPath != "" {
		labels, err := yolo.LoadLabels(cfg.LabelsPath)
		if err != nil {
			service.logger.Warning("Could not load labels from %s, using COCO names: %v", cfg.LabelsPath, err)
		} else {
			service.labels = labels
		}
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
		return service
	}

	if cfg.ModelPath == "" {
		service.logger.Warning("No trained fire model configured, using general-purpose model %s", service.modelPath)
	}
	return service
}

// initializeNet loads the ONNX network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.ready = true
	s.logger.Info("Detection network initialized from %s (%d classes)", s.modelPath, len(s.labels))
	return nil
}

// Ready reports whether a network is loaded.
func (s *DetectorService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Detect runs the network on an encoded image and returns the boxes that
// survive score filtering and non-maximum suppression.
func (s *DetectorService) Detect(ctx context.Context, imageBytes []byte) ([]fire.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, fmt.Errorf("detection network not initialized")
	}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	size := s.params.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	// output: [1, 4+classes, anchors]
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	rows, anchors := dims[1], dims[2]

	reshaped := output.Reshape(1, rows)
	defer reshaped.Close()

	data := make([]float32, rows*anchors)
	for r := 0; r < rows; r++ {
		for a := 0; a < anchors; a++ {
			data[r*anchors+a] = reshaped.GetFloatAt(r, a)
		}
	}

	detections := yolo.Decode(yolo.Output{Data: data, Rows: rows, Anchors: anchors},
		s.labels, mat.Cols(), mat.Rows(), s.params)
	return detections, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		s.ready = false
		return s.net.Close()
	}
	return nil
}
