package geometry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/golang/geo/r2"

	"github.com/spheroseg/segeditor/internal/document"
)

// ErrNativeUnavailable is returned by loaders that cannot provide a kernel.
var ErrNativeUnavailable = errors.New("geometry: native kernel unavailable")

// Loader produces the accelerated kernel. It may block; Switch runs it off
// the caller's goroutine.
type Loader func(ctx context.Context) (Kernel, error)

// LoadNative returns the orb-backed kernel after a short self-test.
func LoadNative(ctx context.Context) (Kernel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := Native{}
	square := document.Polygon{Points: []document.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}}
	if !k.IsPointInPolygon(square, document.Point{X: 0.5, Y: 0.5}) || k.PolygonArea(square) != 1 {
		return nil, fmt.Errorf("self-test: %w", ErrNativeUnavailable)
	}
	return k, nil
}

// Switch answers every Kernel call from the active kernel. Until Load
// succeeds the active kernel is Fallback. A panic in the active kernel is
// recovered, the call is retried on Fallback, and Fallback stays active.
type Switch struct {
	fallback    Kernel
	fallbackRef *Kernel
	active      atomic.Pointer[Kernel]
	logger      *slog.Logger

	once  sync.Once
	ready chan struct{}
	err   error
}

var _ Kernel = (*Switch)(nil)

func NewSwitch(logger *slog.Logger) *Switch {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Switch{fallback: Fallback{}, logger: logger, ready: make(chan struct{})}
	s.fallbackRef = &s.fallback
	s.active.Store(s.fallbackRef)
	return s
}

// Load starts loader in the background. Only the first call has an effect.
// Callers may keep using the Switch while loading is in progress.
func (s *Switch) Load(ctx context.Context, loader Loader) {
	s.once.Do(func() {
		go func() {
			defer close(s.ready)
			k, err := s.runLoader(ctx, loader)
			if err != nil {
				s.err = err
				s.logger.Warn("native geometry unavailable, using fallback", "error", err)
				return
			}
			s.active.Store(&k)
			s.logger.Info("geometry kernel loaded", "kernel", k.Name())
		}()
	})
}

func (s *Switch) runLoader(ctx context.Context, loader Loader) (k Kernel, err error) {
	defer func() {
		if r := recover(); r != nil {
			k, err = nil, fmt.Errorf("loader panicked: %v", r)
		}
	}()
	k, err = loader(ctx)
	if err == nil && k == nil {
		err = ErrNativeUnavailable
	}
	return k, err
}

// Ready is closed when the loader has finished, successfully or not.
func (s *Switch) Ready() <-chan struct{} { return s.ready }

// Err reports the load failure, if any. Valid after Ready is closed.
func (s *Switch) Err() error {
	select {
	case <-s.ready:
		return s.err
	default:
		return nil
	}
}

func (s *Switch) Active() Kernel { return *s.active.Load() }

func (s *Switch) demote(op string, r any) {
	s.logger.Error("geometry kernel panicked, switching to fallback", "op", op, "panic", r)
	s.active.Store(s.fallbackRef)
}

// call runs fn on the active kernel, retrying on the fallback after a panic.
// If the fallback panics too, safe is returned.
func call[T any](s *Switch, op string, safe T, fn func(Kernel) T) (out T) {
	if ref := s.active.Load(); ref != s.fallbackRef {
		k := *ref
		ok := func() (ok bool) {
			defer func() {
				if r := recover(); r != nil {
					s.demote(op, r)
				}
			}()
			out = fn(k)
			return true
		}()
		if ok {
			return out
		}
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("fallback geometry panicked", "op", op, "panic", r)
			out = safe
		}
	}()
	return fn(s.fallback)
}

func (s *Switch) Name() string { return s.Active().Name() }

func (s *Switch) IsPointInPolygon(poly document.Polygon, p document.Point) bool {
	return call(s, "isPointInPolygon", false, func(k Kernel) bool { return k.IsPointInPolygon(poly, p) })
}

func (s *Switch) DistanceToSegment(p, a, b document.Point) float64 {
	return call(s, "distanceToSegment", 0, func(k Kernel) float64 { return k.DistanceToSegment(p, a, b) })
}

func (s *Switch) PolygonArea(poly document.Polygon) float64 {
	return call(s, "polygonArea", 0, func(k Kernel) float64 { return k.PolygonArea(poly) })
}

func (s *Switch) PolygonPerimeter(poly document.Polygon) float64 {
	return call(s, "polygonPerimeter", 0, func(k Kernel) float64 { return k.PolygonPerimeter(poly) })
}

func (s *Switch) BoundingBox(poly document.Polygon) r2.Rect {
	return call(s, "boundingBox", r2.EmptyRect(), func(k Kernel) r2.Rect { return k.BoundingBox(poly) })
}

func (s *Switch) PolygonsIntersect(a, b document.Polygon) bool {
	return call(s, "polygonsIntersect", false, func(k Kernel) bool { return k.PolygonsIntersect(a, b) })
}

func (s *Switch) SimplifyPolygon(poly document.Polygon, tolerance float64) document.Polygon {
	return call(s, "simplifyPolygon", poly, func(k Kernel) document.Polygon { return k.SimplifyPolygon(poly, tolerance) })
}

func (s *Switch) DetectSelfIntersections(poly document.Polygon) []document.Point {
	return call(s, "detectSelfIntersections", []document.Point(nil), func(k Kernel) []document.Point { return k.DetectSelfIntersections(poly) })
}

func (s *Switch) SlicePolygon(poly document.Polygon, a, b document.Point) SliceResult {
	return call(s, "slicePolygon", SliceResult{}, func(k Kernel) SliceResult { return k.SlicePolygon(poly, a, b) })
}

func (s *Switch) CombinePolygons(a, b document.Polygon) (document.Polygon, bool) {
	type combined struct {
		poly document.Polygon
		ok   bool
	}
	r := call(s, "combinePolygons", combined{}, func(k Kernel) combined {
		p, ok := k.CombinePolygons(a, b)
		return combined{p, ok}
	})
	return r.poly, r.ok
}
