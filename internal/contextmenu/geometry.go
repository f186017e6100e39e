package contextmenu

// Point is a pixel position relative to the map canvas
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Rect struct {
	Min  Point
	Size Size
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X < r.Min.X+r.Size.Width &&
		p.Y >= r.Min.Y && p.Y < r.Min.Y+r.Size.Height
}

// Resolve flips the menu to the other side of the anchor on each axis where it would
// overflow the viewport
func Resolve(anchor Point, viewport Size, menu Size) Point {
	p := anchor
	if anchor.X+menu.Width > viewport.Width {
		p.X = anchor.X - menu.Width
	}
	if anchor.Y+menu.Height > viewport.Height {
		p.Y = anchor.Y - menu.Height
	}
	return p
}

// Element is a node of the clicked element chain, innermost first
type Element struct {
	Attrs  map[string]string
	Parent *Element
}

const (
	AttrWaypointID = "data-waypoint-id"
	AttrID         = "data-id"
)

// WaypointID walks up from e to the nearest element that names a waypoint.
// data-waypoint-id wins over data-id on the same element.
func (e *Element) WaypointID() (string, bool) {
	for n := e; n != nil; n = n.Parent {
		if id, ok := n.Attrs[AttrWaypointID]; ok && id != "" {
			return id, true
		}
		if id, ok := n.Attrs[AttrID]; ok && id != "" {
			return id, true
		}
	}
	return "", false
}
