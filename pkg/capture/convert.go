package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mctrack/pkg/vision"
)

// FrameFromMat copies a BGR (or grayscale) Mat into a Frame, resizing it
// first when size is non-zero.
func FrameFromMat(mat gocv.Mat, size image.Point) (vision.Frame, error) {
	if mat.Empty() {
		return vision.Frame{}, fmt.Errorf("capture: empty mat")
	}

	src := mat
	switch mat.Channels() {
	case 3:
	case 1:
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(mat, &bgr, gocv.ColorGrayToBGR)
		src = bgr
	case 4:
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(mat, &bgr, gocv.ColorBGRAToBGR)
		src = bgr
	default:
		return vision.Frame{}, fmt.Errorf("capture: unsupported channel count %d", mat.Channels())
	}

	if size.X > 0 && size.Y > 0 && (src.Cols() != size.X || src.Rows() != size.Y) {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(src, &resized, size, 0, 0, gocv.InterpolationLinear)
		src = resized
	}

	return vision.Frame{
		Width:  src.Cols(),
		Height: src.Rows(),
		Data:   src.ToBytes(),
	}, nil
}

// MatFromFrame wraps a copy of the frame's pixels in a new Mat.
// The caller must Close it.
func MatFromFrame(frame vision.Frame) (gocv.Mat, error) {
	if !frame.Valid() {
		return gocv.Mat{}, fmt.Errorf("capture: invalid frame %dx%d with %d bytes", frame.Width, frame.Height, len(frame.Data))
	}
	view, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("capture: frame to mat: %w", err)
	}
	defer view.Close()
	// view shares frame.Data; drawing on it would modify the frame.
	return view.Clone(), nil
}

// DecodeJPEG decodes JPEG (or PNG) bytes into a Frame.
func DecodeJPEG(data []byte, size image.Point) (vision.Frame, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return vision.Frame{}, fmt.Errorf("capture: decode image: %w", err)
	}
	defer mat.Close()
	return FrameFromMat(mat, size)
}

// EncodeJPEG encodes a frame as JPEG at the given quality.
func EncodeJPEG(frame vision.Frame, quality int) ([]byte, error) {
	mat, err := MatFromFrame(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return EncodeMat(mat, quality)
}

// EncodeMat encodes a BGR Mat as JPEG at the given quality.
func EncodeMat(mat gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("capture: encode jpeg: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
