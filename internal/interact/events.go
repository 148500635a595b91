package interact

// Button follows the DOM MouseEvent.button numbering.
type Button int

const (
	ButtonPrimary   Button = 0
	ButtonMiddle    Button = 1
	ButtonSecondary Button = 2
)

type Modifiers struct {
	Shift bool `json:"shiftKey"`
	Ctrl  bool `json:"ctrlKey"`
	Meta  bool `json:"metaKey"`
	Alt   bool `json:"altKey"`
}

// Command reports whether the platform shortcut modifier is held.
func (m Modifiers) Command() bool { return m.Ctrl || m.Meta }

// Event is the closed set of inputs the machine understands. X and Y are
// canvas pixels.
type Event interface {
	event()
}

type PointerDown struct {
	X, Y   float64
	Button Button
	Modifiers
}

type PointerMove struct {
	X, Y float64
	Modifiers
}

type PointerUp struct {
	X, Y   float64
	Button Button
	Modifiers
}

type Wheel struct {
	X, Y   float64
	DeltaY float64
	Modifiers
}

// KeyDown carries the DOM KeyboardEvent.key value, e.g. "Escape" or "z".
type KeyDown struct {
	Key string
	Modifiers
}

type KeyUp struct {
	Key string
	Modifiers
}

func (PointerDown) event() {}
func (PointerMove) event() {}
func (PointerUp) event()   {}
func (Wheel) event()       {}
func (KeyDown) event()     {}
func (KeyUp) event()       {}
