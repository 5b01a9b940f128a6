// Package reid computes person appearance vectors with an ONNX
// re-identification network.
package reid

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/detection"
	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// Sentinel errors
var (
	ErrModelNotFound = errors.New("reid: model file not found")
	ErrEmptyCrop     = errors.New("reid: crop outside frame")
)

// Config holds embedder configuration
type Config struct {
	ModelPath   string // Path to ONNX re-id model
	InputWidth  int    // Network input width
	InputHeight int    // Network input height
	Device      string // CPU, CUDA, OPENCL, MYRIAD
}

// DefaultConfig returns defaults for a 128x256 person re-id network
func DefaultConfig() Config {
	return Config{
		ModelPath:   "models/person-reidentification.onnx",
		InputWidth:  128,
		InputHeight: 256,
		Device:      "CPU",
	}
}

// Validate checks the config values are within valid ranges.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("reid: model path required")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("reid: input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	if !detection.IsKnownDevice(c.Device) {
		return fmt.Errorf("reid: unknown device %q", c.Device)
	}
	return nil
}

// Embedder runs the re-id network on person crops.
type Embedder struct {
	net       gocv.Net
	inputSize image.Point
	mu        sync.Mutex // Protects inference
}

// New loads the re-id model
func New(cfg Config) (*Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("reid: failed to load model from %s", cfg.ModelPath)
	}
	backend, target := detection.NetTarget(cfg.Device)
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("reid: set backend: %w", err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("reid: set target: %w", err)
	}

	log.Component("reid").Info("re-id model loaded", "model", cfg.ModelPath, "device", cfg.Device)

	return &Embedder{
		net:       net,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Crop clips rect to the frame. Returns false if nothing is left.
func Crop(frame vision.Frame, rect image.Rectangle) (image.Rectangle, bool) {
	r := rect.Intersect(frame.Bounds())
	return r, !r.Empty()
}

// Embed returns the L2-normalized appearance vector of the crop.
func (e *Embedder) Embed(frame vision.Frame, rect image.Rectangle) ([]float32, error) {
	if !frame.Valid() {
		return nil, fmt.Errorf("reid: invalid frame %dx%d", frame.Width, frame.Height)
	}
	r, ok := Crop(frame, rect)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCrop, rect)
	}

	img, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("reid: frame to mat: %w", err)
	}
	defer img.Close()

	crop := img.Region(r)
	defer crop.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	blob := gocv.BlobFromImage(crop, 1.0, e.inputSize, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	output := e.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reid: read output: %w", err)
	}
	vec := append([]float32(nil), data...)
	vision.Normalize(vec)
	return vec, nil
}

// Close releases the network
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
