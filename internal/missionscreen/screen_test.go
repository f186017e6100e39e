package missionscreen

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/coordinates"
	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/session"
	"github.com/tiiuae/groundcontrol/internal/store"
	"github.com/tiiuae/groundcontrol/internal/types"
)

// fakeTimers records armed timers so tests decide when they fire
type fakeTimers struct {
	armed []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) func() bool {
	t := &fakeTimer{d: d, f: f}
	ft.armed = append(ft.armed, t)
	return func() bool {
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (ft *fakeTimers) last() *fakeTimer {
	return ft.armed[len(ft.armed)-1]
}

func newTestScreen(t *testing.T, opts Options) (*screen, *fakeTimers) {
	t.Helper()
	timers := &fakeTimers{}
	opts.AfterFunc = timers.AfterFunc
	s := newScreen("gcs", session.New(session.DefaultPreferences()), opts)
	return s, timers
}

func handle(s *screen, payload interface{}) []types.Message {
	return s.handleMessage(types.Wrap("test", payload))
}

func connect(s *screen) []types.Message {
	return handle(s, types.DroneConnectionChanged{Connected: true, AircraftType: 2})
}

func notifications(msgs []types.Message) []string {
	var out []string
	for _, m := range msgs {
		if n, ok := m.Message.(types.Notification); ok {
			out = append(out, n.Text)
		}
	}
	return out
}

func find[T any](msgs []types.Message) (T, bool) {
	for _, m := range msgs {
		if p, ok := m.Message.(T); ok {
			return p, true
		}
	}
	var zero T
	return zero, false
}

func remoteItems(n int) []mission.Item {
	out := make([]mission.Item, n)
	for i := range out {
		out[i] = mission.Item{ID: "r" + string(rune('0'+i)), Seq: i, Command: mission.CmdWaypoint, X: int32(i + 1), Y: int32(i + 1)}
	}
	return out
}

func TestActivationOnConnect(t *testing.T) {
	s, _ := newTestScreen(t, Options{})

	out := connect(s)
	if len(out) != 2 {
		t.Fatalf("out = %d messages", len(out))
	}
	if out[0].Message != (types.SetState{State: "missions"}) || out[1].Message != (types.GetHomePosition{}) {
		t.Errorf("out = %+v, %+v", out[0].Message, out[1].Message)
	}
	if out := connect(s); len(out) != 0 {
		t.Errorf("second connected event emitted %d messages", len(out))
	}
	handle(s, types.DroneConnectionChanged{})
	if out := connect(s); len(out) != 2 {
		t.Errorf("reconnect emitted %d messages", len(out))
	}
}

func TestHomePosition(t *testing.T) {
	s, _ := newTestScreen(t, Options{})
	out := handle(s, types.HomePositionResult{Success: false, Message: "No home position"})
	if got := notifications(out); len(got) != 1 || got[0] != "No home position" {
		t.Errorf("notifications = %v", got)
	}
	home := types.HomePosition{Lat: 527803197, Lon: -7063922, Alt: 41}
	out = handle(s, types.HomePositionResult{Success: true, Data: &home})
	if changed, ok := find[types.HomePositionChanged](out); !ok || changed.Home != home {
		t.Errorf("out = %+v", out)
	}
	if s.home == nil || *s.home != home {
		t.Errorf("home = %v", s.home)
	}
}

func TestReadMission(t *testing.T) {
	s, _ := newTestScreen(t, Options{})

	if got := notifications(handle(s, types.ReadCollection{})); len(got) != 1 || got[0] != "Not connected to drone" {
		t.Errorf("read while disconnected: %v", got)
	}
	connect(s)
	s.session.SetActiveTab(mission.KindRally)
	out := handle(s, types.ReadCollection{})
	if len(out) != 1 || out[0].Message != (types.GetCurrentMission{Type: mission.KindRally}) {
		t.Errorf("out = %+v", out)
	}

	// a local insert arrives before the read response
	handle(s, types.InsertCommand{Command: mission.CmdWaypoint, At: coordinates.LatLng{Lat: 1, Lng: 1}})
	s.collections[mission.KindMission][0].Seq = 0

	out = handle(s, types.CurrentMission{Success: true, MissionType: "mission", Items: remoteItems(2)})
	items := s.collections[mission.KindMission]
	if len(items) != 3 || items[2].Origin != mission.Local || items[2].Seq != 2 {
		t.Errorf("items = %+v", items)
	}
	if got := notifications(out); len(got) != 1 || got[0] != "mission read successfully" {
		t.Errorf("notifications = %v", got)
	}
	if changed, ok := find[types.CollectionChanged](out); !ok || changed.Kind != mission.KindMission || len(changed.Items) != 3 {
		t.Errorf("changed = %+v", changed)
	}
}

func TestReadFenceReplaces(t *testing.T) {
	s, _ := newTestScreen(t, Options{})
	s.collections[mission.KindFence] = []mission.Item{{ID: "local-x", Origin: mission.Local}}

	handle(s, types.CurrentMission{Success: true, MissionType: "fence", Items: remoteItems(3)})
	if got := s.collections[mission.KindFence]; len(got) != 3 || got[0].ID != "r0" {
		t.Errorf("fence = %+v", got)
	}
}

func TestReadFailureLeavesState(t *testing.T) {
	s, _ := newTestScreen(t, Options{})
	s.collections[mission.KindMission] = remoteItems(2)

	out := handle(s, types.CurrentMission{Success: false, Message: "Timed out reading mission"})
	if got := notifications(out); len(got) != 1 || got[0] != "Timed out reading mission" {
		t.Errorf("notifications = %v", got)
	}
	if len(s.collections[mission.KindMission]) != 2 {
		t.Errorf("state changed on failed read")
	}
	if out := handle(s, types.CurrentMission{Success: true, MissionType: "geofence"}); len(out) != 0 {
		t.Errorf("unknown mission type: %+v", out)
	}
}

func TestWriteGuards(t *testing.T) {
	s, timers := newTestScreen(t, Options{})

	if got := notifications(handle(s, types.WriteCollection{})); len(got) != 1 || got[0] != "Not connected to drone" {
		t.Errorf("disconnected: %v", got)
	}

	connect(s)
	s.session.SetActiveTab(mission.KindFence)
	out := handle(s, types.WriteCollection{})
	if got := notifications(out); len(got) != 1 || got[0] != "No fence items to upload" {
		t.Errorf("empty fence: %v", got)
	}
	if _, ok := find[types.UploadMission](out); ok {
		t.Errorf("upload emitted for empty collection")
	}
	if s.upload.inFlight || len(timers.armed) != 0 {
		t.Errorf("upload started for empty collection")
	}

	s.collections[mission.KindMission] = remoteItems(2)
	handle(s, types.WriteCollection{Kind: mission.KindMission})
	out = handle(s, types.WriteCollection{Kind: mission.KindMission})
	if got := notifications(out); len(got) != 1 || got[0] != "Mission upload already in progress" {
		t.Errorf("second upload: %v", got)
	}
	if len(timers.armed) != 1 {
		t.Errorf("armed %d timers", len(timers.armed))
	}
}

func TestWriteFormatsItems(t *testing.T) {
	s, timers := newTestScreen(t, Options{UploadTimeout: 12 * time.Second})
	connect(s)
	items := remoteItems(3)
	items[0].Seq, items[1].Seq, items[2].Seq = 5, 9, 11
	s.collections[mission.KindMission] = items

	out := handle(s, types.WriteCollection{Kind: mission.KindMission})
	up, ok := find[types.UploadMission](out)
	if !ok {
		t.Fatalf("no upload in %+v", out)
	}
	if up.Type != mission.KindMission || len(up.MissionData) != 3 {
		t.Fatalf("upload = %+v", up)
	}
	for i, w := range up.MissionData {
		if w.Seq != i || w.X != int32(i+1) {
			t.Errorf("item %d = %+v", i, w)
		}
	}
	if timers.last().d != 12*time.Second {
		t.Errorf("timeout = %v", timers.last().d)
	}
	if started, ok := find[types.UploadStarted](out); !ok || started.Count != 3 {
		t.Errorf("started = %+v", started)
	}
}

// fire runs the timer callback and feeds what it posted back into the handler
func fire(t *testing.T, s *screen, timer *fakeTimer) []types.Message {
	t.Helper()
	go timer.f()
	select {
	case msg := <-s.inbox:
		return s.handleMessage(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not post")
	}
	return nil
}

func TestUploadTimeout(t *testing.T) {
	s, timers := newTestScreen(t, Options{})
	connect(s)
	s.collections[mission.KindMission] = remoteItems(1)
	handle(s, types.WriteCollection{Kind: mission.KindMission})

	out := fire(t, s, timers.last())
	if s.upload.inFlight {
		t.Errorf("still in flight after timeout")
	}
	if got := notifications(out); len(got) != 1 || got[0] != "Mission upload timed out. Please try again." {
		t.Errorf("notifications = %v", got)
	}
	if fin, ok := find[types.UploadFinished](out); !ok || fin.Outcome != types.UploadTimeout {
		t.Errorf("finished = %+v", fin)
	}

	// the same expiry delivered again does nothing
	if out := handle(s, types.UploadTimedOut{Session: s.upload.id}); len(out) != 0 {
		t.Errorf("second timeout notified: %v", notifications(out))
	}

	// late result: notification only, no resurrection
	out = handle(s, types.UploadMissionResult{Success: true, Message: "Mission uploaded successfully"})
	if got := notifications(out); len(got) != 1 || got[0] != "Mission uploaded successfully" {
		t.Errorf("late result: %v", got)
	}
	if fin, ok := find[types.UploadFinished](out); !ok || !fin.Late || fin.Outcome != types.UploadSucceeded {
		t.Errorf("late finished = %+v", fin)
	}
	if s.upload.inFlight || mission.CountLocal(s.collections[mission.KindMission]) != 0 {
		t.Errorf("late result changed the session")
	}
}

func TestUploadSuccessPromotes(t *testing.T) {
	s, timers := newTestScreen(t, Options{})
	connect(s)
	handle(s, types.InsertCommand{Command: mission.CmdTakeoff, At: coordinates.LatLng{Lat: 1, Lng: 2}})
	handle(s, types.InsertCommand{Command: mission.CmdLand, At: coordinates.LatLng{Lat: 1, Lng: 3}})
	handle(s, types.WriteCollection{Kind: mission.KindMission})

	out := handle(s, types.UploadMissionResult{Success: true, Message: "Mission uploaded successfully"})
	if !timers.last().stopped {
		t.Errorf("timer not stopped")
	}
	if s.upload.inFlight {
		t.Errorf("still in flight")
	}
	items := s.collections[mission.KindMission]
	if n := mission.CountLocal(items); n != 0 {
		t.Errorf("%d items still local", n)
	}
	// held seqs match what was sent
	if len(items) != 2 || items[0].Seq != 0 || items[1].Seq != 1 {
		t.Errorf("seqs after upload = %+v", items)
	}
	if fin, ok := find[types.UploadFinished](out); !ok || fin.Outcome != types.UploadSucceeded || fin.Kind != mission.KindMission {
		t.Errorf("finished = %+v", fin)
	}

	// expiry of the finished session is ignored even if the timer raced the stop
	if out := handle(s, types.UploadTimedOut{Session: s.upload.id}); len(out) != 0 {
		t.Errorf("stale timeout notified: %v", notifications(out))
	}
}

func TestEditsDuringUpload(t *testing.T) {
	edits := map[string]func(s *screen){
		"insert": func(s *screen) {
			handle(s, types.InsertCommand{Command: mission.CmdLand, At: coordinates.LatLng{Lat: 1, Lng: 4}})
		},
		"delete": func(s *screen) {
			handle(s, types.DeleteNearest{At: coordinates.LatLng{Lat: 1, Lng: 3}})
		},
		"move": func(s *screen) {
			id := s.collections[mission.KindMission][0].ID
			handle(s, types.MoveItem{Kind: mission.KindMission, ID: id, To: coordinates.LatLng{Lat: 5, Lng: 5}})
		},
		"import": func(s *screen) {
			handle(s, types.ImportMission{Name: "saved"})
		},
	}
	outcomes := map[string]func(t *testing.T, s *screen, timers *fakeTimers){
		"success": func(t *testing.T, s *screen, _ *fakeTimers) {
			handle(s, types.UploadMissionResult{Success: true, Message: "Mission uploaded successfully"})
		},
		"failure": func(t *testing.T, s *screen, _ *fakeTimers) {
			handle(s, types.UploadMissionResult{Success: false, Message: "Could not clear mission"})
		},
		"timeout": func(t *testing.T, s *screen, timers *fakeTimers) {
			fire(t, s, timers.last())
		},
	}

	tests := []struct {
		edit    string
		outcome string
		locals  int // local items left after the next read
	}{
		{"insert", "success", 1},
		{"insert", "failure", 3},
		{"insert", "timeout", 3},
		{"delete", "success", 0},
		{"delete", "failure", 1},
		{"delete", "timeout", 1},
		{"move", "success", 1},
		{"move", "failure", 2},
		{"move", "timeout", 2},
		{"import", "success", 1},
		{"import", "failure", 1},
		{"import", "timeout", 1},
	}
	for _, tt := range tests {
		snaps := &memorySnapshots{}
		snaps.SaveSnapshot(context.Background(), "saved", map[mission.Kind][]mission.Item{
			mission.KindMission: {{ID: "saved-1", Seq: 1, Command: mission.CmdWaypoint, X: 70000000, Y: 70000000}},
		}, time.Now())
		s, timers := newTestScreen(t, Options{Store: snaps})
		connect(s)
		handle(s, types.InsertCommand{Command: mission.CmdWaypoint, At: coordinates.LatLng{Lat: 1, Lng: 2}})
		handle(s, types.InsertCommand{Command: mission.CmdWaypoint, At: coordinates.LatLng{Lat: 1, Lng: 3}})
		handle(s, types.WriteCollection{Kind: mission.KindMission})

		edits[tt.edit](s)
		outcomes[tt.outcome](t, s, timers)
		if s.upload.inFlight {
			t.Errorf("%s/%s: upload still in flight", tt.edit, tt.outcome)
		}

		// the vehicle holds the uploaded pair only when the upload went through
		onVehicle := 0
		if tt.outcome == "success" {
			onVehicle = 2
		}
		handle(s, types.CurrentMission{Success: true, MissionType: "mission", Items: remoteItems(onVehicle)})

		items := s.collections[mission.KindMission]
		if n := mission.CountLocal(items); n != tt.locals {
			t.Errorf("%s/%s: %d local items after read, want %d", tt.edit, tt.outcome, n, tt.locals)
		}
		if len(items) != onVehicle+tt.locals {
			t.Errorf("%s/%s: %d items after read, want %d", tt.edit, tt.outcome, len(items), onVehicle+tt.locals)
		}
		seen := map[int]bool{}
		for _, it := range items {
			if seen[it.Seq] {
				t.Errorf("%s/%s: duplicate seq %d", tt.edit, tt.outcome, it.Seq)
			}
			seen[it.Seq] = true
		}
	}
}

func TestUploadFailureKeepsLocal(t *testing.T) {
	s, _ := newTestScreen(t, Options{})
	connect(s)
	handle(s, types.InsertCommand{Command: mission.CmdWaypoint, At: coordinates.LatLng{Lat: 1, Lng: 2}})
	handle(s, types.WriteCollection{Kind: mission.KindMission})

	out := handle(s, types.UploadMissionResult{Success: false, Message: "Could not clear mission"})
	if got := notifications(out); len(got) != 1 || got[0] != "Could not clear mission" {
		t.Errorf("notifications = %v", got)
	}
	if n := mission.CountLocal(s.collections[mission.KindMission]); n != 1 {
		t.Errorf("local items = %d", n)
	}
	if fin, _ := find[types.UploadFinished](out); fin.Outcome != types.UploadFailed {
		t.Errorf("outcome = %q", fin.Outcome)
	}
	// a new upload is allowed
	if _, ok := find[types.UploadMission](handle(s, types.WriteCollection{Kind: mission.KindMission})); !ok {
		t.Errorf("upload after failure rejected")
	}
}

func TestTimeoutOfOldSessionIgnored(t *testing.T) {
	s, timers := newTestScreen(t, Options{})
	connect(s)
	s.collections[mission.KindMission] = remoteItems(1)

	handle(s, types.WriteCollection{Kind: mission.KindMission})
	first := timers.last()
	handle(s, types.UploadMissionResult{Success: false, Message: "busy"})
	handle(s, types.WriteCollection{Kind: mission.KindMission})

	if out := fire(t, s, first); len(out) != 0 {
		t.Errorf("old timer closed the new session: %v", notifications(out))
	}
	if !s.upload.inFlight {
		t.Errorf("new session closed")
	}
}

func TestInsertAndDelete(t *testing.T) {
	s, _ := newTestScreen(t, Options{})

	out := handle(s, types.DeleteNearest{At: coordinates.LatLng{Lat: 1, Lng: 1}})
	if got := notifications(out); len(got) != 1 || got[0] != "No mission items to delete" {
		t.Errorf("empty delete: %v", got)
	}
	if len(s.collections[mission.KindMission]) != 0 {
		t.Errorf("list changed")
	}
	if _, ok := find[types.CollectionChanged](out); ok {
		t.Errorf("empty delete reported a change")
	}

	out = handle(s, types.InsertCommand{Command: mission.CmdReturnToLaunch, At: coordinates.LatLng{Lat: 10, Lng: 10}})
	if got := notifications(out); len(got) != 1 || got[0] != "Inserted Return To Launch" {
		t.Errorf("insert: %v", got)
	}
	handle(s, types.InsertCommand{Command: mission.CmdWaypoint, At: coordinates.LatLng{Lat: 20, Lng: 20}})
	handle(s, types.InsertCommand{Command: mission.CmdLand, At: coordinates.LatLng{Lat: 30, Lng: 30}})

	out = handle(s, types.DeleteNearest{At: coordinates.LatLng{Lat: 21, Lng: 19}})
	if got := notifications(out); len(got) != 1 || got[0] != "Deleted nearest item" {
		t.Errorf("delete: %v", got)
	}
	items := s.collections[mission.KindMission]
	if len(items) != 2 || items[0].Command != mission.CmdReturnToLaunch || items[1].Command != mission.CmdLand {
		t.Errorf("items = %+v", items)
	}
	if items[0].Seq != 1 || items[1].Seq != 2 {
		t.Errorf("seqs = %d, %d", items[0].Seq, items[1].Seq)
	}
}

func TestMove(t *testing.T) {
	s, _ := newTestScreen(t, Options{})
	s.collections[mission.KindRally] = remoteItems(1)
	s.collections[mission.KindFence] = remoteItems(1)
	to := coordinates.LatLng{Lat: 45.5, Lng: -73.25}

	out := handle(s, types.MoveItem{Kind: mission.KindRally, ID: "r0", To: to})
	if changed, ok := find[types.CollectionChanged](out); !ok || changed.Items[0].Position() != to {
		t.Errorf("rally move: %+v", out)
	}
	if out := handle(s, types.MoveItem{Kind: mission.KindFence, ID: "r0", To: to}); len(out) != 0 {
		t.Errorf("fence moved")
	}
	if out := handle(s, types.MoveItem{Kind: mission.KindMission, ID: "nope", To: to}); len(out) != 0 {
		t.Errorf("unknown id moved")
	}
}

type memorySnapshots struct {
	saved map[string]map[mission.Kind][]mission.Item
}

func (m *memorySnapshots) SaveSnapshot(ctx context.Context, name string, c map[mission.Kind][]mission.Item, at time.Time) error {
	if m.saved == nil {
		m.saved = make(map[string]map[mission.Kind][]mission.Item)
	}
	m.saved[name] = c
	return nil
}

func (m *memorySnapshots) SnapshotNames(ctx context.Context) ([]string, error) {
	var out []string
	for name := range m.saved {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memorySnapshots) LoadSnapshot(ctx context.Context, name string) ([]store.Snapshot, error) {
	c, ok := m.saved[name]
	if !ok {
		return nil, errors.WithMessage(store.ErrNotFound, name)
	}
	var out []store.Snapshot
	for _, k := range mission.Kinds {
		if items, ok := c[k]; ok {
			out = append(out, store.Snapshot{Name: name, Kind: k, Items: items})
		}
	}
	return out, nil
}

func TestSaveImport(t *testing.T) {
	snaps := &memorySnapshots{}
	s, _ := newTestScreen(t, Options{Store: snaps})
	s.collections[mission.KindMission] = remoteItems(2)

	if got := notifications(handle(s, types.SaveMission{Name: "survey"})); len(got) != 1 || got[0] != "Saved mission survey" {
		t.Errorf("save: %v", got)
	}
	s.collections[mission.KindMission] = nil

	out := handle(s, types.ImportMission{Name: "survey"})
	items := s.collections[mission.KindMission]
	if len(items) != 2 || mission.CountLocal(items) != 2 {
		t.Errorf("imported = %+v", items)
	}
	if got := notifications(out); got[len(got)-1] != "Imported mission survey" {
		t.Errorf("import: %v", got)
	}

	list, ok := find[types.SnapshotList](handle(s, types.ListSnapshots{}))
	if !ok || len(list.Names) != 1 || list.Names[0] != "survey" {
		t.Errorf("saved names = %+v", list)
	}

	if got := notifications(handle(s, types.ImportMission{Name: "missing"})); len(got) != 1 || got[0] != "No saved mission named missing" {
		t.Errorf("missing: %v", got)
	}

	bare, _ := newTestScreen(t, Options{})
	if got := notifications(bare.handleMessage(types.Wrap("t", types.SaveMission{Name: "x"}))); len(got) != 1 || !strings.Contains(got[0], "not configured") {
		t.Errorf("no store: %v", got)
	}
}

func TestExport(t *testing.T) {
	var gotPath string
	var gotItems int
	s, _ := newTestScreen(t, Options{Export: func(path string, c map[mission.Kind][]mission.Item) error {
		gotPath = path
		gotItems = len(c[mission.KindMission])
		return nil
	}})
	s.collections[mission.KindMission] = remoteItems(4)

	out := handle(s, types.ExportMission{Path: "/tmp/m.xlsx"})
	if got := notifications(out); len(got) != 1 || got[0] != "Exported to /tmp/m.xlsx" {
		t.Errorf("export: %v", got)
	}
	if gotPath != "/tmp/m.xlsx" || gotItems != 4 {
		t.Errorf("exporter got %q %d", gotPath, gotItems)
	}
}

func TestListCollectionCopies(t *testing.T) {
	s, _ := newTestScreen(t, Options{})
	s.collections[mission.KindMission] = remoteItems(1)

	out := handle(s, types.ListCollection{Kind: mission.KindMission})
	changed, ok := find[types.CollectionChanged](out)
	if !ok {
		t.Fatal("no listing")
	}
	changed.Items[0].Seq = 99
	if s.collections[mission.KindMission][0].Seq == 99 {
		t.Errorf("listing shares the owned slice")
	}
}
