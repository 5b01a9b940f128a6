// mctrack - Multi-camera person tracking
//
// Detects people in every input, links them to one global ID across cameras,
// and optionally writes an annotated grid video, a history file and a live
// web dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-mctrack/internal/config"
	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/app"
	"github.com/teslashibe/go-mctrack/pkg/capture"
)

// inputList collects repeated or comma separated -i values.
type inputList []string

func (l *inputList) String() string { return strings.Join(*l, ",") }

func (l *inputList) Set(v string) error {
	*l = append(*l, capture.SplitInputs([]string{v})...)
	return nil
}

func main() {
	cfg, logLevel := parseFlags()
	log.Init(logLevel)

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Initialization failed: %v\n", err)
		os.Exit(1)
	}

	err = a.Run(ctx)
	a.Shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Runtime error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() (app.Config, string) {
	cfg := app.DefaultConfig()

	var inputs inputList
	flag.Var(&inputs, "i", "Input: camera index, video file, RTSP URL or ws:// JPEG feed (repeatable, comma separated)")
	model := flag.String("m", cfg.DetectorModel, "Person detector ONNX model")
	threshold := flag.Float64("t", cfg.Threshold, "Detection confidence threshold")
	reidModel := flag.String("m_reid", "", "Re-identification ONNX model (enables cross-camera IDs)")
	device := flag.String("d", cfg.Device, "Inference device: CPU, CUDA, OPENCL, MYRIAD")
	trackerCfg := flag.String("config", "", "Tracker config file (YAML or JSON)")
	outputVideo := flag.String("output_video", "", "Write the annotated camera grid to this file")
	historyFile := flag.String("history_file", "", "Write identity history JSON to this file")
	webPort := flag.Int("web", cfg.WebPort, "Dashboard port (0 disables, overridden by "+config.EnvWebPort+")")
	preset := flag.String("preset", "", "Capture preset: "+strings.Join(capture.PresetNames(), ", "))
	maxQueue := flag.Int("max-queue", cfg.Pipeline.MaxQueueLength, "Queue length above which capture throttles")
	hardLimit := flag.Int("hard-limit", 0, "Queue capacity with drop-oldest (0 = soft limit only)")
	abort := flag.Bool("abort-on-error", false, "Stop every camera when one fails")
	logLevel := flag.String("log-level", config.LogLevel(config.DefaultLogLevel), "Log level: debug, info, warn, error")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg.Inputs = inputs
	cfg.DetectorModel, cfg.Threshold = *model, *threshold
	cfg.ReidModel, cfg.Device = *reidModel, *device
	cfg.TrackerConfig = *trackerCfg
	cfg.OutputVideo, cfg.HistoryFile = *outputVideo, *historyFile
	cfg.WebPort, cfg.Preset = *webPort, *preset
	cfg.Pipeline.MaxQueueLength = *maxQueue
	cfg.Pipeline.HardLimit = *hardLimit
	cfg.Pipeline.AbortOnError = *abort
	cfg.Debug = *debug

	level := *logLevel
	if cfg.Debug {
		level = "debug"
	}
	return cfg, level
}
