package interact

import (
	"fmt"
	"strings"
)

type Mode int

const (
	ModeView Mode = iota
	ModeCreatePolygon
	ModeEditVertices
	ModeAddPoints
	ModeSlice
	ModeDeletePolygon
)

var modeNames = [...]string{
	ModeView:          "view",
	ModeCreatePolygon: "createPolygon",
	ModeEditVertices:  "editVertices",
	ModeAddPoints:     "addPoints",
	ModeSlice:         "slice",
	ModeDeletePolygon: "deletePolygon",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts the names produced by String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(name, s) {
			return Mode(i), nil
		}
	}
	return ModeView, fmt.Errorf("unknown mode %q", s)
}

// clearsSelection reports whether entering m drops the selected polygon.
func (m Mode) clearsSelection() bool {
	return m == ModeView || m == ModeCreatePolygon
}

// shortcuts maps single-key bindings to modes.
var shortcuts = map[string]Mode{
	"v": ModeView,
	"n": ModeCreatePolygon,
	"e": ModeEditVertices,
	"a": ModeAddPoints,
	"s": ModeSlice,
	"d": ModeDeletePolygon,
}
