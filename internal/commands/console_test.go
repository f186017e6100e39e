package commands

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/session"
	"github.com/tiiuae/groundcontrol/internal/types"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConsole(t *testing.T) {
	s := session.New(session.DefaultPreferences())
	out := &syncBuffer{}
	in := strings.NewReader("tab fence\nfly\nstatus\ndrag mission m1 1 2\n")

	var mu sync.Mutex
	var posted []types.Message
	post := func(msg types.Message) {
		mu.Lock()
		posted = append(posted, msg)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	c := New("gcs", s, in, out)
	go c.Run(ctx, &wg, post)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(posted) == 3
	})
	mu.Lock()
	if tab, ok := posted[0].Message.(types.SelectTab); !ok || tab.Kind != mission.KindFence {
		t.Errorf("first = %+v", posted[0].Message)
	}
	if posted[0].MessageType != "select-tab" || posted[0].From != "gcs" {
		t.Errorf("envelope = %+v", posted[0])
	}
	if _, ok := posted[2].Message.(types.DragEnd); !ok {
		t.Errorf("third = %+v", posted[2].Message)
	}
	mu.Unlock()

	c.Receive(types.Notify("screen", types.LevelSuccess, "mission read successfully"))
	c.Receive(types.Wrap("screen", types.Heartbeat{}))
	c.Receive(types.Wrap("screen", types.SnapshotList{Names: []string{"north", "south"}}))
	waitFor(t, func() bool { return strings.Contains(out.String(), "saved missions: north, south") })
	if !strings.Contains(out.String(), "[success] mission read successfully") {
		t.Errorf("notification not printed")
	}

	cancel()
	wg.Wait()

	text := out.String()
	if !strings.Contains(text, `error: "fly": unknown command`) {
		t.Errorf("missing parse error in %q", text)
	}
	if !strings.Contains(text, "drone:      disconnected") {
		t.Errorf("missing status in %q", text)
	}
}

func TestFormatCollection(t *testing.T) {
	m := types.CollectionChanged{Kind: mission.KindMission, Items: []mission.Item{
		{ID: "a", Seq: 1, Command: mission.CmdTakeoff, X: 527803197, Y: -70639220, Z: 20},
		{ID: "local-b", Origin: mission.Local, Seq: 2, Command: mission.CmdLand},
	}}
	got := FormatCollection(m)
	for _, want := range []string{"mission: 2 items, 1 local", "Takeoff", "52.7803197, -7.0639220", "local local-b"} {
		if !strings.Contains(got, want) {
			t.Errorf("%q does not contain %q", got, want)
		}
	}
}
