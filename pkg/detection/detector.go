// Package detection provides person detection using computer vision
package detection

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// ErrModelNotFound is returned when the model file does not exist.
var ErrModelNotFound = errors.New("detection: model file not found")

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.6)
	NMSThresh        float64 // Non-maximum suppression IoU threshold
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
	Device           string  // CPU, CUDA, OPENCL, MYRIAD
	Classes          []string
}

// DefaultConfig returns production defaults for a YOLOv8n person detector
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.6,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
		Device:           "CPU",
		Classes:          []string{"person"},
	}
}

// Validate checks the config values are within valid ranges.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("detection: model path required")
	}
	if c.ConfidenceThresh <= 0 || c.ConfidenceThresh > 1 {
		return fmt.Errorf("detection: confidence threshold must be in (0, 1], got %.2f", c.ConfidenceThresh)
	}
	if c.NMSThresh <= 0 || c.NMSThresh > 1 {
		return fmt.Errorf("detection: NMS threshold must be in (0, 1], got %.2f", c.NMSThresh)
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("detection: input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	if !IsKnownDevice(c.Device) {
		return fmt.Errorf("detection: unknown device %q", c.Device)
	}
	for _, name := range c.Classes {
		if ClassID(name) < 0 {
			return fmt.Errorf("detection: unknown class %q", name)
		}
	}
	return nil
}

// IsKnownDevice reports whether device names a supported inference target.
func IsKnownDevice(device string) bool {
	switch strings.ToUpper(device) {
	case "CPU", "CUDA", "OPENCL", "MYRIAD":
		return true
	}
	return false
}

// ClassID returns the COCO class id for name, or -1.
func ClassID(name string) int {
	for i, c := range COCOClasses {
		if c == name {
			return i
		}
	}
	return -1
}

// SortByConfidence orders detections from most to least confident.
// Ties keep their original order.
func SortByConfidence(dets []vision.Detection) {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})
}

// FilterMinArea drops detections smaller than minArea pixels.
func FilterMinArea(dets []vision.Detection, minArea int) []vision.Detection {
	out := dets[:0]
	for _, d := range dets {
		if d.Area() >= minArea {
			out = append(out, d)
		}
	}
	return out
}

// COCOClasses contains the 80 COCO class names
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// IsPerson returns true if the class is a person
func IsPerson(className string) bool {
	return className == "person"
}
