package mapview

import (
	"context"
	"log"
	"sync"

	"github.com/tiiuae/groundcontrol/internal/contextmenu"
	"github.com/tiiuae/groundcontrol/internal/coordinates"
	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/session"
	"github.com/tiiuae/groundcontrol/internal/types"
)

var DefaultViewport = contextmenu.Size{Width: 1280, Height: 720}

type drag struct {
	kind mission.Kind
	id   string
}

// mapView turns pointer events into edit intents for the mission screen. It never
// changes collections itself.
type mapView struct {
	me        string
	inbox     chan types.Message
	done      chan struct{}
	once      sync.Once
	session   *session.Session
	menu      *contextmenu.Menu
	viewport  contextmenu.Size
	clipboard Clipboard

	rightClickPending bool
	dragging          *drag
}

func New(deviceID string, s *session.Session, clipboard Clipboard, historyLimit int) types.MessageHandler {
	return newMapView(deviceID, s, clipboard, historyLimit)
}

func newMapView(deviceID string, s *session.Session, clipboard Clipboard, historyLimit int) *mapView {
	if clipboard == nil {
		clipboard = &MemoryClipboard{}
	}
	return &mapView{
		me:        deviceID,
		inbox:     make(chan types.Message, 50),
		done:      make(chan struct{}),
		session:   s,
		menu:      contextmenu.New(historyLimit),
		viewport:  DefaultViewport,
		clipboard: clipboard,
	}
}

func (v *mapView) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()
	defer v.once.Do(func() { close(v.done) })

	for {
		select {
		case <-ctx.Done():
			log.Println("MapView shutting down")
			return
		case msg := <-v.inbox:
			for _, x := range v.handleMessage(msg) {
				post(x)
			}
		}
	}
}

func (v *mapView) Receive(message types.Message) {
	select {
	case v.inbox <- message:
	case <-v.done:
	}
}

func (v *mapView) handleMessage(msg types.Message) []types.Message {
	switch m := msg.Message.(type) {
	case types.ViewportResized:
		v.viewport = m.Size
	case types.RightClick:
		v.menu.OpenAt(m.Point, v.viewport, m.At, m.Target)
		v.rightClickPending = true
		v.dragging = nil
		return []types.Message{v.menuChanged()}
	case types.MenuRendered:
		if err := v.menu.ApplyLayout(m.Size); err != nil {
			log.Printf("MapView: %v", err)
			return nil
		}
		return []types.Message{v.menuChanged()}
	case types.SubmenuRendered:
		if err := v.menu.ApplySubmenuLayout(m.Size); err != nil {
			log.Printf("MapView: %v", err)
		}
	case types.ToggleSubmenu:
		if err := v.menu.ToggleSubmenu(); err != nil {
			log.Printf("MapView: %v", err)
			return nil
		}
		return []types.Message{v.menuChanged()}
	case types.KeyDown:
		v.rightClickPending = false
		if v.menu.KeyDown(m.Key) {
			return []types.Message{v.menuChanged()}
		}
	case types.PointerDown:
		if !v.menu.Visible() {
			// the menu has not been placed yet, this is still the right-click gesture
			if v.menu.State() == contextmenu.Closed {
				v.rightClickPending = false
			}
			return nil
		}
		v.rightClickPending = false
		if v.menu.PointerDown(m.Point) {
			return []types.Message{v.menuChanged()}
		}
	case types.MenuAction:
		return v.invoke(m)
	case types.DragStart:
		v.dragStart(m)
	case types.DragEnd:
		return v.dragEnd(m)
	case types.GlobalPositionInt:
		if m.Lat == 0 || m.Lon == 0 {
			return nil
		}
		at := coordinates.LatLng{Lat: coordinates.ToDegrees(m.Lat), Lng: coordinates.ToDegrees(m.Lon)}
		return []types.Message{types.Wrap(v.me, types.VehiclePositionChanged{At: at, Heading: float64(m.Hdg) / 100})}
	}
	return nil
}

func (v *mapView) invoke(m types.MenuAction) []types.Message {
	v.rightClickPending = false
	effect, err := v.menu.Invoke(m.Action, m.Command)
	if err != nil {
		log.Printf("MapView: %s: %v", m.Action, err)
		return []types.Message{v.menuChanged()}
	}

	out := []types.Message{v.menuChanged()}
	switch effect.Action {
	case contextmenu.ActionCopy:
		if err := v.clipboard.WriteText(effect.Text); err != nil {
			return append(out, types.Notify(v.me, types.LevelError, "Copy failed"))
		}
		out = append(out, types.Notify(v.me, types.LevelInfo, "Copied to clipboard"))
	case contextmenu.ActionInsert:
		out = append(out, types.Wrap(v.me, types.InsertCommand{Command: effect.Command, At: effect.At}))
	case contextmenu.ActionDelete:
		out = append(out, types.Wrap(v.me, types.DeleteNearest{At: effect.At}))
	}
	return out
}

// Draggable reports whether markers of the kind can be moved while tab is active
func Draggable(kind mission.Kind, activeTab mission.Kind) bool {
	switch kind {
	case mission.KindMission:
		return true
	case mission.KindRally:
		return activeTab == mission.KindRally
	}
	return false
}

func (v *mapView) dragSuppressed() bool {
	return v.menu.State() != contextmenu.Closed || v.rightClickPending
}

func (v *mapView) dragStart(m types.DragStart) {
	v.dragging = nil
	if v.dragSuppressed() {
		log.Printf("MapView: drag of %s %s suppressed by context menu", m.Kind, m.ID)
		return
	}
	if !Draggable(m.Kind, v.session.ActiveTab()) {
		return
	}
	v.dragging = &drag{m.Kind, m.ID}
}

func (v *mapView) dragEnd(m types.DragEnd) []types.Message {
	d := v.dragging
	v.dragging = nil
	if d == nil || d.kind != m.Kind || d.id != m.ID {
		return nil
	}
	return []types.Message{types.Wrap(v.me, types.MoveItem{Kind: m.Kind, ID: m.ID, To: m.To})}
}

func (v *mapView) menuChanged() types.Message {
	target, _ := v.menu.Target()
	return types.Wrap(v.me, types.MenuChanged{
		State:    v.menu.State().String(),
		Visible:  v.menu.Visible(),
		Position: v.menu.Position(),
		At:       v.menu.LatLng(),
		Target:   target,
	})
}
