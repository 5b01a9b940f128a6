package web

import (
	"bytes"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mctrack/pkg/hub"
)

// handleStatus returns the pipeline status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleStop requests a global stop. Repeated calls are accepted.
func (s *Server) handleStop(c *fiber.Ctx) error {
	if s.OnStop == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "stop not configured",
		})
	}
	if s.stopping.CompareAndSwap(false, true) {
		s.log.Info("stop requested from dashboard", "ip", c.IP())
		s.OnStop()
	}
	return c.JSON(fiber.Map{"stopping": true})
}

// handleStopSource stops one camera while the others keep running
func (s *Server) handleStopSource(c *fiber.Ctx) error {
	if s.OnStopSource == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "stop not configured",
		})
	}
	source, err := strconv.Atoi(c.Params("source"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "source must be an integer")
	}
	if err := s.OnStopSource(source); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	s.log.Info("source stop requested from dashboard", "source", source, "ip", c.IP())
	return c.JSON(fiber.Map{"source": source, "stopping": true})
}

// handleSnapshot returns the latest annotated frame of a source,
// optionally resized to ?width=N
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	h, err := s.sourceHub(c)
	if err != nil {
		return err
	}
	msg, ok := h.Latest()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no frame yet",
		})
	}

	data := msg.Data
	if w := c.Query("width"); w != "" {
		width, err := strconv.Atoi(w)
		if err != nil || width < 1 || width > s.cfg.MaxWidth {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "width must be between 1 and " + strconv.Itoa(s.cfg.MaxWidth),
			})
		}
		if data, err = resizeJPEG(data, width); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

// resizeJPEG scales a JPEG to width, keeping the aspect ratio
func resizeJPEG(data []byte, width int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() != width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) sourceHub(c *fiber.Ctx) (*hub.Hub, error) {
	source, err := strconv.Atoi(c.Params("source"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "source must be an integer")
	}
	h := s.CameraHub(source)
	if h == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "unknown source "+strconv.Itoa(source))
	}
	return h, nil
}

// requireSource rejects websocket upgrades for unknown sources
func (s *Server) requireSource(c *fiber.Ctx) error {
	if _, err := s.sourceHub(c); err != nil {
		return err
	}
	return c.Next()
}

// handleCameraWS streams annotated JPEG frames of one source
func (s *Server) handleCameraWS(c *websocket.Conn) {
	source, _ := strconv.Atoi(c.Params("source"))
	h := s.CameraHub(source)
	if h == nil {
		c.Close()
		return
	}
	if client := hub.NewClient(h, c); client != nil {
		client.Run()
	}
}

// handleStatusWS streams pipeline status
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.Status()); err != nil {
		return
	}
	if client := hub.NewClient(s.statusHub, c); client != nil {
		client.Run()
	}
}
