package vision

import (
	"image"
	"math"
	"testing"
)

func TestFrame_Valid(t *testing.T) {
	tests := []struct {
		name   string
		frame  Frame
		expect bool
	}{
		{
			name:   "matching buffer",
			frame:  Frame{Width: 4, Height: 2, Data: make([]byte, 4*2*Channels)},
			expect: true,
		},
		{
			name:   "short buffer",
			frame:  Frame{Width: 4, Height: 2, Data: make([]byte, 10)},
			expect: false,
		},
		{
			name:   "zero size",
			frame:  Frame{},
			expect: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.frame.Valid(); got != tc.expect {
				t.Errorf("Valid: got %v, want %v", got, tc.expect)
			}
		})
	}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name   string
		a, b   image.Rectangle
		expect float64
	}{
		{
			name:   "identical",
			a:      image.Rect(0, 0, 10, 10),
			b:      image.Rect(0, 0, 10, 10),
			expect: 1.0,
		},
		{
			name:   "disjoint",
			a:      image.Rect(0, 0, 10, 10),
			b:      image.Rect(20, 20, 30, 30),
			expect: 0,
		},
		{
			name:   "half overlap",
			a:      image.Rect(0, 0, 10, 10),
			b:      image.Rect(5, 0, 15, 10),
			expect: 50.0 / 150.0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := IoU(tc.a, tc.b)
			if math.Abs(got-tc.expect) > 1e-9 {
				t.Errorf("IoU: got %.4f, want %.4f", got, tc.expect)
			}
		})
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("Cosine same: got %.4f, want 1", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("Cosine orthogonal: got %.4f, want 0", got)
	}
	if got := Cosine([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("Cosine length mismatch: got %.4f, want 0", got)
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("Normalize: got %v, want [0.6 0.8]", v)
	}

	zero := []float32{0, 0}
	Normalize(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("Normalize zero: got %v, want [0 0]", zero)
	}
}
