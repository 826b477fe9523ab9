// Package profile owns the named profiles and their key bindings, and keeps
// them on disk as JSON.
package profile

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind selects what happens at a binding's coordinate.
type ActionKind string

// Action kinds, stored by their display strings.
const (
	ClickAndReturn       ActionKind = "Click and Return"
	ClickAndStay         ActionKind = "Click and Stay"
	DoubleClickAndReturn ActionKind = "Double Click and Return"
	DragAndReturn        ActionKind = "Drag and Return"
)

// DefaultKind applies to legacy entries and unrecognized type strings.
const DefaultKind = ClickAndReturn

// Kinds lists every action kind in display order.
func Kinds() []ActionKind {
	return []ActionKind{ClickAndReturn, ClickAndStay, DoubleClickAndReturn, DragAndReturn}
}

// Valid reports whether k is one of the known kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ClickAndReturn, ClickAndStay, DoubleClickAndReturn, DragAndReturn:
		return true
	}
	return false
}

// ParseActionKind maps a display string to a kind, falling back to
// DefaultKind for anything unrecognized.
func ParseActionKind(s string) ActionKind {
	k := ActionKind(s)
	if k.Valid() {
		return k
	}
	return DefaultKind
}

// Coord is a point in screen pixels.
type Coord struct {
	X int
	Y int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// ParseCoord reads "x,y", with optional parentheses and spaces.
func ParseCoord(s string) (Coord, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Coord{}, fmt.Errorf("coordinate %q: want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Coord{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Coord{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	return Coord{X: x, Y: y}, nil
}

// Binding is the action attached to one combo.
type Binding struct {
	Coords Coord
	Kind   ActionKind
}

func (b Binding) String() string {
	return fmt.Sprintf("%s at %s", b.Kind, b.Coords)
}

// DefaultProfileName is created on first run and whenever the file is unusable.
const DefaultProfileName = "Default"
