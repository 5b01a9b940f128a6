// Package overlay draws tracking results onto frames and hands the
// annotated images to sinks: a grid video file and the dashboard stream.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// palette holds distinct, saturated box colours
var palette = []color.RGBA{
	{R: 230, G: 25, B: 75, A: 255},
	{R: 60, G: 180, B: 75, A: 255},
	{R: 255, G: 225, B: 25, A: 255},
	{R: 0, G: 130, B: 200, A: 255},
	{R: 245, G: 130, B: 48, A: 255},
	{R: 145, G: 30, B: 180, A: 255},
	{R: 70, G: 240, B: 240, A: 255},
	{R: 240, G: 50, B: 230, A: 255},
	{R: 210, G: 245, B: 60, A: 255},
	{R: 250, G: 190, B: 212, A: 255},
}

// ColorFor returns a stable colour for a global ID
func ColorFor(id int) color.RGBA {
	if id < 0 {
		id = -id
	}
	return palette[id%len(palette)]
}

// Label returns the text drawn above a box
func Label(obj vision.TrackedObject) string {
	return fmt.Sprintf("ID %d", obj.ID)
}

// Drawer annotates frames with boxes, IDs and a per-camera header
type Drawer struct {
	Thickness int
	FontScale float64

	// FPSFunc reports the current rate of a source; nil hides the FPS.
	FPSFunc func(source int) float64
}

// NewDrawer returns a drawer with default styling
func NewDrawer() *Drawer {
	return &Drawer{
		Thickness: 2,
		FontScale: 0.6,
	}
}

// Header returns the status line drawn at the top of a source's frame
func (d *Drawer) Header(source int, objects int) string {
	if d.FPSFunc == nil {
		return fmt.Sprintf("cam %d | %d people", source, objects)
	}
	return fmt.Sprintf("cam %d | %.1f FPS | %d people", source, d.FPSFunc(source), objects)
}

// Annotate draws objects on img in place
func (d *Drawer) Annotate(img *gocv.Mat, source int, objects []vision.TrackedObject) {
	for _, obj := range objects {
		c := ColorFor(obj.ID)
		gocv.Rectangle(img, obj.Rect, c, d.Thickness)

		origin := image.Pt(obj.Rect.Min.X, obj.Rect.Min.Y-6)
		if origin.Y < 12 {
			origin.Y = obj.Rect.Min.Y + 16
		}
		gocv.PutText(img, Label(obj), origin, gocv.FontHersheySimplex, d.FontScale, c, d.Thickness)
	}

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(img, d.Header(source, len(objects)), image.Pt(10, 24),
		gocv.FontHersheySimplex, d.FontScale, white, d.Thickness)
}
