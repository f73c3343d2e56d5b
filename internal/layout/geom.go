package layout

import (
	"fmt"
	"strings"
)

// Rect is an absolute screen rectangle in whole pixels.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d @ %d,%d", r.Width, r.Height, r.X, r.Y)
}

// Empty reports whether the rect covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Orientation selects the axis a split container divides.
type Orientation int

const (
	// Horizontal stacks children top to bottom, dividing the height.
	Horizontal Orientation = iota
	// Vertical lays children out left to right, dividing the width.
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "HORIZONTAL"
	case Vertical:
		return "VERTICAL"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// ParseOrientation accepts "horizontal" or "vertical" in any case.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal":
		return Horizontal, nil
	case "vertical":
		return Vertical, nil
	default:
		return 0, fmt.Errorf("unknown orientation %q", s)
	}
}

// Axis returns the offset and length of r along the axis o divides.
func (o Orientation) Axis(r Rect) (offset, length int) {
	if o == Vertical {
		return r.X, r.Width
	}
	return r.Y, r.Height
}

// WithAxis returns r with the split-axis offset and length replaced. The
// cross axis is inherited unchanged.
func (o Orientation) WithAxis(r Rect, offset, length int) Rect {
	if o == Vertical {
		r.X = offset
		r.Width = length
		return r
	}
	r.Y = offset
	r.Height = length
	return r
}

// Split divides frame into count equal slices along the orientation's axis.
// The span is floored, so up to count-1 trailing pixels stay unallocated.
func Split(frame Rect, o Orientation, count int) []Rect {
	if count <= 0 {
		return nil
	}
	offset, length := o.Axis(frame)
	span := length / count
	rects := make([]Rect, count)
	for i := range rects {
		rects[i] = o.WithAxis(frame, offset+span*i, span)
	}
	return rects
}

// Direction is a navigation command.
type Direction int

const (
	North Direction = iota
	South
	East
	West
	Up
	Down
)

var directionNames = map[Direction]string{
	North: "NORTH",
	South: "SOUTH",
	East:  "EAST",
	West:  "WEST",
	Up:    "UP",
	Down:  "DOWN",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts direction names in any case. right and left alias
// east and west; up and parent select Up, down and child select Down.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north":
		return North, nil
	case "south":
		return South, nil
	case "east", "right":
		return East, nil
	case "west", "left":
		return West, nil
	case "up", "parent":
		return Up, nil
	case "down", "child":
		return Down, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Accepts reports whether a container with orientation o can move along d
// between its children. Horizontal containers take NORTH and SOUTH,
// vertical ones EAST and WEST.
func (o Orientation) Accepts(d Direction) bool {
	switch o {
	case Horizontal:
		return d == North || d == South
	case Vertical:
		return d == East || d == West
	default:
		return false
	}
}

// Delta returns the sibling offset for a compass direction: +1 for SOUTH and
// EAST, -1 for NORTH and WEST, 0 otherwise.
func (d Direction) Delta() int {
	switch d {
	case South, East:
		return 1
	case North, West:
		return -1
	default:
		return 0
	}
}
