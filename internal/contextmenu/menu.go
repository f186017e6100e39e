package contextmenu

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/coordinates"
	"github.com/tiiuae/groundcontrol/internal/mission"
)

var (
	ErrClosed        = errors.New("context menu is closed")
	ErrNotInsertable = errors.New("command cannot be inserted from the map")
	ErrUnknownAction = errors.New("unknown menu action")
	ErrNotLaidOut    = errors.New("menu layout not applied yet")
)

type State uint8

const (
	Closed State = iota
	Open
	OpenWithSubmenu
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case OpenWithSubmenu:
		return "open-with-submenu"
	}
	return "closed"
}

type Action uint8

const (
	ActionCopy Action = iota + 1
	ActionInsert
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCopy:
		return "copy"
	case ActionInsert:
		return "insert"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// Effect is what a leaf action asks the owner of the menu to do
type Effect struct {
	Action  Action
	At      coordinates.LatLng
	Command mission.Command
	Text    string
}

// Click is one entry of the right-click history
type Click struct {
	Time       time.Time          `json:"time"`
	At         coordinates.LatLng `json:"at"`
	WaypointID string             `json:"waypoint_id,omitempty"`
}

const DefaultHistoryLimit = 50

type Menu struct {
	state    State
	anchor   Point
	viewport Size
	position Point
	at       coordinates.LatLng
	target   string

	size        Size
	laidOut     bool
	submenuSize Size

	history      []Click
	historyLimit int
	now          func() time.Time
}

func New(historyLimit int) *Menu {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Menu{historyLimit: historyLimit, now: time.Now}
}

// OpenAt handles a right-click. The menu is placed at the anchor until ApplyLayout
// reports its rendered size, and is not visible before that.
func (m *Menu) OpenAt(anchor Point, viewport Size, at coordinates.LatLng, target *Element) {
	m.state = Open
	m.anchor = anchor
	m.viewport = viewport
	m.position = anchor
	m.at = at
	m.target, _ = target.WaypointID()
	m.size = Size{}
	m.laidOut = false
	m.submenuSize = Size{}

	m.history = append(m.history, Click{Time: m.now(), At: at, WaypointID: m.target})
	if over := len(m.history) - m.historyLimit; over > 0 {
		m.history = append(m.history[:0:0], m.history[over:]...)
	}
}

// ApplyLayout corrects the position once the rendered menu size is known
func (m *Menu) ApplyLayout(size Size) error {
	if m.state == Closed {
		return ErrClosed
	}
	m.size = size
	m.position = Resolve(m.anchor, m.viewport, size)
	m.laidOut = true
	return nil
}

func (m *Menu) ApplySubmenuLayout(size Size) error {
	if m.state != OpenWithSubmenu {
		return ErrClosed
	}
	m.submenuSize = size
	return nil
}

// ToggleSubmenu flips between Open and OpenWithSubmenu
func (m *Menu) ToggleSubmenu() error {
	switch m.state {
	case Closed:
		return ErrClosed
	case Open:
		if !m.laidOut {
			return ErrNotLaidOut
		}
		m.state = OpenWithSubmenu
	case OpenWithSubmenu:
		m.state = Open
		m.submenuSize = Size{}
	}
	return nil
}

// KeyDown closes the menu on Escape and reports whether it did
func (m *Menu) KeyDown(key string) bool {
	if m.state == Closed || key != "Escape" {
		return false
	}
	m.Close()
	return true
}

// PointerDown closes the menu when the pointer lands outside the menu and its submenu.
// It reports whether the menu was closed. Before layout the menu has no bounds, so the
// event is ignored.
func (m *Menu) PointerDown(p Point) bool {
	if m.state == Closed || !m.laidOut {
		return false
	}
	if m.Bounds().Contains(p) {
		return false
	}
	if sub, ok := m.SubmenuBounds(); ok && sub.Contains(p) {
		return false
	}
	m.Close()
	return true
}

// Invoke runs a leaf action. The menu closes whether or not the action is valid.
func (m *Menu) Invoke(action Action, command mission.Command) (Effect, error) {
	if m.state == Closed {
		return Effect{}, ErrClosed
	}
	at := m.at
	m.Close()

	switch action {
	case ActionCopy:
		return Effect{Action: ActionCopy, At: at, Text: at.Format()}, nil
	case ActionDelete:
		return Effect{Action: ActionDelete, At: at}, nil
	case ActionInsert:
		for _, c := range mission.Insertable {
			if c == command {
				return Effect{Action: ActionInsert, At: at, Command: command}, nil
			}
		}
		return Effect{}, errors.WithMessagef(ErrNotInsertable, "command %d", command)
	}
	return Effect{}, ErrUnknownAction
}

func (m *Menu) Close() {
	m.state = Closed
	m.laidOut = false
	m.submenuSize = Size{}
}

func (m *Menu) State() State { return m.state }

// Visible is true only once the menu is open and positioned
func (m *Menu) Visible() bool { return m.state != Closed && m.laidOut }

func (m *Menu) SubmenuVisible() bool { return m.state == OpenWithSubmenu && m.laidOut }

func (m *Menu) Anchor() Point { return m.anchor }

func (m *Menu) Position() Point { return m.position }

func (m *Menu) LatLng() coordinates.LatLng { return m.at }

// Target returns the waypoint the menu was opened on
func (m *Menu) Target() (string, bool) { return m.target, m.target != "" }

func (m *Menu) Bounds() Rect { return Rect{Min: m.position, Size: m.size} }

func (m *Menu) SubmenuBounds() (Rect, bool) {
	if m.state != OpenWithSubmenu || m.submenuSize == (Size{}) {
		return Rect{}, false
	}
	return Rect{Min: Point{X: m.position.X + m.size.Width, Y: m.position.Y}, Size: m.submenuSize}, true
}

func (m *Menu) History() []Click {
	out := make([]Click, len(m.history))
	copy(out, m.history)
	return out
}
