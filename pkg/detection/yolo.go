package detection

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// YOLODetector uses YOLOv8 for person detection
type YOLODetector struct {
	net       gocv.Net
	config    Config
	classes   map[int]bool
	mu        sync.Mutex // Protects inference
	inputSize image.Point
}

// NewYOLO creates a new YOLO person detector
func NewYOLO(cfg Config) (*YOLODetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check if model file exists
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	// Load ONNX model
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("detection: failed to load YOLO model from %s", cfg.ModelPath)
	}

	backend, target := NetTarget(cfg.Device)
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("detection: set backend: %w", err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("detection: set target: %w", err)
	}

	classes := make(map[int]bool, len(cfg.Classes))
	for _, name := range cfg.Classes {
		classes[ClassID(name)] = true
	}

	log.Component("detection").Info("YOLO model loaded",
		"model", cfg.ModelPath,
		"device", cfg.Device,
		"threshold", cfg.ConfidenceThresh)

	return &YOLODetector{
		net:       net,
		config:    cfg,
		classes:   classes,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// NetTarget maps a device name to the gocv DNN backend and target.
func NetTarget(device string) (gocv.NetBackendType, gocv.NetTargetType) {
	switch strings.ToUpper(device) {
	case "CUDA":
		return gocv.NetBackendCUDA, gocv.NetTargetCUDA
	case "OPENCL":
		return gocv.NetBackendOpenCV, gocv.NetTargetFP32
	case "MYRIAD":
		return gocv.NetBackendOpenVINO, gocv.NetTargetVPU
	default:
		return gocv.NetBackendDefault, gocv.NetTargetCPU
	}
}

// Detect finds people in the frame
func (d *YOLODetector) Detect(frame vision.Frame) ([]vision.Detection, error) {
	if !frame.Valid() {
		return nil, fmt.Errorf("detection: invalid frame %dx%d with %d bytes", frame.Width, frame.Height, len(frame.Data))
	}

	img, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("detection: frame to mat: %w", err)
	}
	defer img.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Create blob from image
	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	// Forward pass
	output := d.net.Forward("")
	defer output.Close()

	detections, err := d.parseYOLOv8Output(output, frame.Bounds())
	if err != nil {
		return nil, err
	}
	return detections, nil
}

// parseYOLOv8Output parses the YOLOv8 output tensor
func (d *YOLODetector) parseYOLOv8Output(output gocv.Mat, bounds image.Rectangle) ([]vision.Detection, error) {
	// Output shape: [1, 84, 8400] - 84 = 4 bbox + 80 classes
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("detection: unexpected output shape %v", sizes)
	}
	cols := sizes[1] // 4 bbox + class scores
	rows := sizes[2] // candidate boxes

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("detection: read output: %w", err)
	}

	imgW := float32(bounds.Dx())
	imgH := float32(bounds.Dy())
	thresh := float32(d.config.ConfidenceThresh)

	var boxes []image.Rectangle
	var confidences []float32

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < cols; c++ {
			score := data[c*rows+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < thresh || !d.classes[maxClassID] {
			continue
		}

		// Center format in model input space
		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		sx := imgW / float32(d.config.InputWidth)
		sy := imgH / float32(d.config.InputHeight)
		box := image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		boxes = append(boxes, box)
		confidences = append(confidences, maxScore)
	}

	if len(boxes) == 0 {
		return []vision.Detection{}, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, thresh, float32(d.config.NMSThresh))

	detections := make([]vision.Detection, 0, len(indices))
	for _, idx := range indices {
		detections = append(detections, vision.Detection{
			Rect:       boxes[idx],
			Confidence: float64(confidences[idx]),
		})
	}
	SortByConfidence(detections)
	return detections, nil
}

// Close releases the detector resources
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
