// Package web provides the live tracking dashboard: pipeline status, a stop
// control, per-camera snapshots and websocket feeds.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mctrack/internal/log"
	"github.com/teslashibe/go-mctrack/pkg/hub"
	"github.com/teslashibe/go-mctrack/pkg/pipeline"
)

// Config holds dashboard settings
type Config struct {
	Port           int
	StaticDir      string        // Served at / when set
	StatusInterval time.Duration // Period of /ws/status pushes
	MaxWidth       int           // Largest snapshot resize width
}

// DefaultConfig returns the dashboard defaults
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		StatusInterval: time.Second,
		MaxWidth:       3840,
	}
}

// Status is the dashboard view of the pipeline
type Status struct {
	Running    bool             `json:"running"`
	Stopping   bool             `json:"stopping"`
	Uptime     string           `json:"uptime"`
	Identities int              `json:"identities"`
	Sources    []pipeline.Stats `json:"sources"`
}

// Server is the web dashboard server
type Server struct {
	app     *fiber.App
	cfg     Config
	log     *slog.Logger
	started time.Time

	// Hubs for websocket broadcast
	statusHub  *hub.Hub
	cameraHubs []*hub.Hub

	stopping atomic.Bool
	running  atomic.Bool

	// StatsFunc reports per-source pipeline stats.
	StatsFunc func() []pipeline.Stats

	// IdentitiesFunc reports the tracker's identity count.
	IdentitiesFunc func() int

	// OnStop is called once when a client requests a global stop.
	OnStop func()

	// OnStopSource stops a single camera.
	OnStopSource func(source int) error
}

// NewServer creates a dashboard for numSources cameras
func NewServer(cfg Config, numSources int) *Server {
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultConfig().StatusInterval
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultConfig().MaxWidth
	}

	s := &Server{
		cfg:        cfg,
		log:        log.Component("web"),
		started:    time.Now(),
		statusHub:  hub.New("status"),
		cameraHubs: make([]*hub.Hub, numSources),
	}
	for i := range s.cameraHubs {
		s.cameraHubs[i] = hub.New(fmt.Sprintf("camera-%d", i))
	}

	app := fiber.New(fiber.Config{
		AppName:               "mctrack dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/stop", s.handleStop)
	api.Post("/stop/:source", s.handleStopSource)
	api.Get("/snapshot/:source", s.handleSnapshot)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/camera/:source", s.requireSource, websocket.New(s.handleCameraWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Run starts the hubs and status pushes, then serves until the listener
// fails or Shutdown is called. Hubs stop when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.StartHubs(ctx)
	s.log.Info("🌐 web dashboard", "url", fmt.Sprintf("http://localhost:%d", s.cfg.Port))
	return s.app.Listen(fmt.Sprintf(":%d", s.cfg.Port))
}

// StartHubs starts every hub and the periodic status broadcast.
func (s *Server) StartHubs(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	go s.statusHub.Run(ctx)
	for _, h := range s.cameraHubs {
		go h.Run(ctx)
	}
	go s.pushStatus(ctx)
}

// StartAsync runs the server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Run(ctx); err != nil {
			s.log.Warn("web server error", "error", err)
		}
	}()
}

func (s *Server) pushStatus(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if err := s.statusHub.BroadcastJSON(s.Status()); err != nil {
				s.log.Warn("status encode failed", "error", err)
			}
		}
	}
}

// Status builds the current dashboard status
func (s *Server) Status() Status {
	st := Status{
		Running:  s.running.Load(),
		Stopping: s.stopping.Load(),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sources:  []pipeline.Stats{},
	}
	if s.StatsFunc != nil {
		st.Sources = s.StatsFunc()
	}
	if s.IdentitiesFunc != nil {
		st.Identities = s.IdentitiesFunc()
	}
	return st
}

// SendCameraFrame broadcasts an annotated JPEG for one source
func (s *Server) SendCameraFrame(source int, jpegData []byte) {
	if h := s.CameraHub(source); h != nil {
		h.BroadcastBinary(jpegData)
	}
}

// CameraHub returns the hub for one source, or nil
func (s *Server) CameraHub(source int) *hub.Hub {
	if source < 0 || source >= len(s.cameraHubs) {
		return nil
	}
	return s.cameraHubs[source]
}

// StatusHub returns the status hub
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
