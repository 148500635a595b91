package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spheroseg/segeditor/internal/document"
)

func TestRoundTrip(t *testing.T) {
	tr := Transform{Zoom: 2.5, TranslateX: 40, TranslateY: -12}
	p := document.Point{X: 13.25, Y: 7}
	sx, sy := ToScreenSpace(p, tr)
	back := ToImageSpace(sx, sy, tr)
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	assert.InDelta(t, 13.25*2.5+40, sx, 1e-9)
}

func TestFitToCanvas(t *testing.T) {
	tests := []struct {
		name                 string
		iw, ih, cw, ch       float64
		zoom, txWant, tyWant float64
	}{
		{"larger image", 2000, 1000, 1000, 800, 0.45, 50, 175},
		{"small image never upscales", 100, 100, 1000, 800, 1, 450, 350},
		{"tall image", 500, 2000, 1000, 900, 0.405, 398.75, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitToCanvas(tt.iw, tt.ih, tt.cw, tt.ch, DefaultLimits())
			assert.InDelta(t, tt.zoom, got.Zoom, 1e-9)
			assert.InDelta(t, tt.txWant, got.TranslateX, 1e-9)
			assert.InDelta(t, tt.tyWant, got.TranslateY, 1e-9)
		})
	}

	assert.Equal(t, 1.0, FitToCanvas(0, 0, 100, 100, DefaultLimits()).Zoom)
}

func TestFitRespectsLimits(t *testing.T) {
	got := FitToCanvas(100000, 100000, 100, 100, Limits{MinZoom: 0.1, MaxZoom: 10})
	assert.Equal(t, 0.1, got.Zoom)
}

func TestApplyZoomClamps(t *testing.T) {
	limits := Limits{MinZoom: 0.5, MaxZoom: 10}
	got := ApplyZoom(Default(), 0, 0, 19, limits)
	assert.Equal(t, 10.0, got.Zoom)

	got = ApplyZoom(Default(), 0, 0, -0.99, limits)
	assert.Equal(t, 0.5, got.Zoom)

	got = ApplyZoom(Default(), 0, 0, -5, limits)
	assert.Equal(t, 0.5, got.Zoom, "factor floors at 0.01 before clamping")
}

func TestApplyZoomKeepsPivot(t *testing.T) {
	tr := Transform{Zoom: 1.2, TranslateX: 30, TranslateY: 15}
	before := ToImageSpace(400, 300, tr)
	after := ApplyZoom(tr, 400, 300, 0.5, DefaultLimits())
	assert.InDelta(t, 1.8, after.Zoom, 1e-9)

	moved := ToImageSpace(400, 300, after)
	assert.InDelta(t, before.X, moved.X, 1e-9)
	assert.InDelta(t, before.Y, moved.Y, 1e-9)
}

func TestWheel(t *testing.T) {
	tr := Default()
	assert.Equal(t, tr, Wheel(tr, 10, 10, 0, DefaultLimits()))
	assert.InDelta(t, 1.1, Wheel(tr, 0, 0, -100, DefaultLimits()).Zoom, 1e-9)
	assert.InDelta(t, 1/1.1, Wheel(tr, 0, 0, 100, DefaultLimits()).Zoom, 1e-9)
}

func TestPanAndHitRadius(t *testing.T) {
	tr := Pan(Transform{Zoom: 4}, 10, -5)
	assert.Equal(t, 10.0, tr.TranslateX)
	assert.Equal(t, -5.0, tr.TranslateY)
	assert.Equal(t, 2.0, HitRadius(8, tr))
}

func TestMatrixInvert(t *testing.T) {
	m := Transform{Zoom: 3, TranslateX: 5, TranslateY: 7}.Matrix()
	assert.InDeltaSlice(t, Identity().ToSlice(), m.Multiply(m.Invert()).ToSlice(), 1e-10)
	assert.Equal(t, Identity(), Matrix2D{}.Invert(), "singular matrices invert to identity")
	assert.Equal(t, []float64{3, 0, 0, 3, 5, 7}, m.ToSlice())
}
