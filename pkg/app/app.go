package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/teslashibe/go-mctrack/internal/config"
	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/capture"
	"github.com/teslashibe/go-mctrack/pkg/detection"
	"github.com/teslashibe/go-mctrack/pkg/mct"
	"github.com/teslashibe/go-mctrack/pkg/overlay"
	"github.com/teslashibe/go-mctrack/pkg/pipeline"
	"github.com/teslashibe/go-mctrack/pkg/reid"
	"github.com/teslashibe/go-mctrack/pkg/web"
)

// Grid cell used for the output video when capture keeps native size.
var defaultCell = image.Pt(640, 480)

// detector is a pipeline detector owning model resources.
type detector interface {
	pipeline.Detector
	io.Closer
}

// App holds every component of a tracking run.
type App struct {
	config Config
	log    *slog.Logger

	source   *capture.Multi
	detector detector
	embedder *reid.Embedder
	tracker  *mct.Tracker
	renderer *overlay.Renderer
	pipeline *pipeline.Orchestrator

	webServer  *web.Server
	webStarted bool
}

// New creates an App from cfg after applying environment overrides.
func New(cfg Config) (*App, error) {
	if err := cfg.LoadEnvConfig(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyPreset()

	return &App{
		config: cfg,
		log:    log.Component("app"),
	}, nil
}

// Init opens the inputs, loads the models and builds the pipeline.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	fmt.Println("🎥 mctrack - Multi-Camera Person Tracking")
	fmt.Println("=========================================")
	if a.config.Debug {
		fmt.Println("🐛 Debug mode enabled")
	}

	fmt.Printf("📹 Opening %d input(s)... ", len(a.config.Inputs))
	src, err := capture.Open(ctx, a.config.Inputs, a.config.Capture)
	if err != nil {
		fmt.Println("❌")
		return fmt.Errorf("capture: %w", err)
	}
	fmt.Println("✅")

	fmt.Print("🧠 Loading detector... ")
	det, err := detection.NewYOLO(a.config.detectorConfig())
	if err != nil {
		fmt.Println("❌")
		src.Close()
		return fmt.Errorf("detector: %w", err)
	}
	fmt.Println("✅")

	if a.config.ReidModel != "" {
		fmt.Print("🧬 Loading re-identification model... ")
		rcfg := reid.DefaultConfig()
		rcfg.ModelPath = a.config.ReidModel
		rcfg.Device = a.config.Device
		emb, err := reid.New(rcfg)
		if err != nil {
			fmt.Println("❌")
			det.Close()
			src.Close()
			return fmt.Errorf("reid: %w", err)
		}
		a.embedder = emb
		fmt.Println("✅")
	} else {
		fmt.Println("⚠️  No re-id model: IDs are per camera only")
	}

	if err := a.assemble(src, det); err != nil {
		a.Shutdown()
		return err
	}
	return nil
}

// assemble builds the tracker, renderers, pipeline and dashboard around an
// opened source and detector. The App owns both from here on.
func (a *App) assemble(src *capture.Multi, det detector) error {
	a.source = src
	a.detector = det
	n := src.NumSources()

	tcfg, err := config.LoadTrackerConfig(a.config.TrackerConfig)
	if err != nil {
		return err
	}
	if a.config.HistoryFile != "" {
		tcfg.KeepHistory = true
	}

	var emb mct.Embedder
	if a.embedder != nil {
		emb = a.embedder
	}
	a.tracker, err = mct.New(n, emb, tcfg)
	if err != nil {
		return fmt.Errorf("tracker: %w", err)
	}

	if a.config.WebPort > 0 {
		wcfg := web.DefaultConfig()
		wcfg.Port = a.config.WebPort
		a.webServer = web.NewServer(wcfg, n)
	}

	var sinks []overlay.Sink
	if a.config.OutputVideo != "" {
		cell := defaultCell
		if a.config.Capture.Resizes() {
			cell = image.Pt(a.config.Capture.Width, a.config.Capture.Height)
		}
		vs, err := overlay.NewVideoSink(a.config.OutputVideo, n, cell, float64(a.config.Capture.FPS))
		if err != nil {
			return err
		}
		sinks = append(sinks, vs)
	}
	if a.webServer != nil {
		sinks = append(sinks, overlay.NewStreamSink(a.webServer, a.config.Capture.Quality, a.config.StreamFPS))
	}

	var renderer pipeline.Renderer
	if len(sinks) > 0 {
		drawer := overlay.NewDrawer()
		drawer.FPSFunc = a.sourceFPS
		a.renderer = overlay.NewRenderer(drawer, sinks...)
		renderer = a.renderer
	}

	pcfg := a.config.Pipeline
	if pcfg.Logger == nil {
		pcfg.Logger = log.Component("pipeline")
	}
	a.pipeline, err = pipeline.New(src, det, a.tracker, renderer, pcfg)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	if a.webServer != nil {
		a.webServer.StatsFunc = a.pipeline.Stats
		a.webServer.IdentitiesFunc = a.tracker.Identities
		a.webServer.OnStop = a.pipeline.Stop
		a.webServer.OnStopSource = a.pipeline.StopSource
	}

	a.log.Info("pipeline ready",
		"sources", n,
		"reid", a.embedder != nil,
		"output_video", a.config.OutputVideo,
		"web_port", a.config.WebPort)
	return nil
}

// sourceFPS reports the processing rate of one source for the overlay.
func (a *App) sourceFPS(source int) float64 {
	if a.pipeline == nil {
		return 0
	}
	stats := a.pipeline.Stats()
	if source < 0 || source >= len(stats) {
		return 0
	}
	return stats[source].FPS
}

// Run processes every source until all of them end, the dashboard requests a
// stop, or ctx is cancelled. The history file is written afterwards.
func (a *App) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return errors.New("app: Run called before Init")
	}

	webCtx, cancelWeb := context.WithCancel(ctx)
	defer cancelWeb()
	if a.webServer != nil {
		a.webServer.StartAsync(webCtx)
		a.webStarted = true
	}

	fmt.Println("\n👀 Tracking! (Ctrl+C to stop)")
	runErr := a.pipeline.Run(ctx)

	var histErr error
	if a.config.HistoryFile != "" {
		runID, err := mct.SaveHistory(a.config.HistoryFile, a.tracker)
		if err != nil {
			histErr = fmt.Errorf("history: %w", err)
		} else {
			a.log.Info("history written",
				"path", a.config.HistoryFile,
				"run_id", runID,
				"identities", a.tracker.Identities())
		}
	}

	for _, s := range a.pipeline.Stats() {
		a.log.Info("source summary",
			"source", s.Source,
			"input", a.source.Name(s.Source),
			"state", s.State,
			"processed", s.Processed,
			"rendered", s.Rendered,
			"throttles", s.Throttles)
	}

	err := errors.Join(runErr, histErr)
	if err == nil {
		a.log.Info("✅ tracking finished successfully")
	}
	return err
}

// Tracker returns the shared tracker, or nil before Init.
func (a *App) Tracker() *mct.Tracker {
	return a.tracker
}

// Pipeline returns the orchestrator, or nil before Init.
func (a *App) Pipeline() *pipeline.Orchestrator {
	return a.pipeline
}

// Shutdown releases every component. Safe to call after a failed Init.
func (a *App) Shutdown() {
	fmt.Println("\n👋 Goodbye!")

	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if a.webServer != nil && a.webStarted {
		if err := a.webServer.Shutdown(); err != nil {
			a.log.Debug("web shutdown", "error", err)
		}
	}
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			a.log.Warn("close renderer", "error", err)
		}
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.log.Warn("close inputs", "error", err)
		}
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.log.Warn("close detector", "error", err)
		}
	}
	if a.embedder != nil {
		if err := a.embedder.Close(); err != nil {
			a.log.Warn("close reid", "error", err)
		}
	}
}
