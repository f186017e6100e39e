package missionscreen

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/session"
	"github.com/tiiuae/groundcontrol/internal/store"
	"github.com/tiiuae/groundcontrol/internal/types"
)

const DefaultUploadTimeout = 30 * time.Second

// AfterFunc arms a timer and returns its stop function
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, name string, collections map[mission.Kind][]mission.Item, at time.Time) error
	LoadSnapshot(ctx context.Context, name string) ([]store.Snapshot, error)
	SnapshotNames(ctx context.Context) ([]string, error)
}

type Exporter func(path string, collections map[mission.Kind][]mission.Item) error

type Options struct {
	UploadTimeout time.Duration
	AfterFunc     AfterFunc
	Store         SnapshotStore
	Export        Exporter
}

// screen owns the mission, fence and rally collections. Every change to them
// goes through its inbox.
type screen struct {
	me      string
	inbox   chan types.Message
	done    chan struct{}
	once    sync.Once
	session *session.Session
	opts    Options

	connected   bool
	collections map[mission.Kind][]mission.Item
	home        *types.HomePosition
	upload      uploadSession
}

func New(deviceID string, s *session.Session, opts Options) types.MessageHandler {
	return newScreen(deviceID, s, opts)
}

func newScreen(deviceID string, s *session.Session, opts Options) *screen {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	return &screen{
		me:      deviceID,
		inbox:   make(chan types.Message, 50),
		done:    make(chan struct{}),
		session: s,
		opts:    opts,
		collections: map[mission.Kind][]mission.Item{
			mission.KindMission: {},
			mission.KindFence:   {},
			mission.KindRally:   {},
		},
	}
}

func (s *screen) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()
	defer s.once.Do(func() { close(s.done) })

	for {
		select {
		case <-ctx.Done():
			log.Println("MissionScreen shutting down")
			s.upload.stopTimer()
			return
		case msg := <-s.inbox:
			for _, x := range s.handleMessage(msg) {
				post(x)
			}
		}
	}
}

func (s *screen) Receive(message types.Message) {
	select {
	case s.inbox <- message:
	case <-s.done:
	}
}

func (s *screen) handleMessage(msg types.Message) []types.Message {
	switch m := msg.Message.(type) {
	case types.DroneConnectionChanged:
		return s.handleConnectionChanged(m)
	case types.HomePositionResult:
		return s.handleHomePosition(m)
	case types.SelectTab:
		s.session.SetActiveTab(m.Kind)
	case types.ReadCollection:
		return s.read(s.kindOrActive(m.Kind))
	case types.CurrentMission:
		return s.handleCurrentMission(m)
	case types.WriteCollection:
		return s.write(s.kindOrActive(m.Kind))
	case types.UploadMissionResult:
		return s.handleUploadResult(m)
	case types.UploadTimedOut:
		return s.handleUploadTimedOut(m)
	case types.ListCollection:
		return []types.Message{s.changed(s.kindOrActive(m.Kind))}
	case types.InsertCommand:
		return s.insert(m)
	case types.DeleteNearest:
		return s.deleteNearest(m)
	case types.MoveItem:
		return s.move(m)
	case types.SaveMission:
		return s.save(m.Name)
	case types.ImportMission:
		return s.importSnapshot(m.Name)
	case types.ListSnapshots:
		return s.listSnapshots()
	case types.ExportMission:
		return s.export(m.Path)
	}
	return nil
}

func (s *screen) handleConnectionChanged(m types.DroneConnectionChanged) []types.Message {
	was := s.connected
	s.connected = m.Connected
	if !m.Connected || was {
		return nil
	}
	return []types.Message{
		s.out(types.SetState{State: "missions"}),
		s.out(types.GetHomePosition{}),
	}
}

func (s *screen) handleHomePosition(m types.HomePositionResult) []types.Message {
	if !m.Success || m.Data == nil {
		return []types.Message{s.notify(types.LevelError, m.Message)}
	}
	home := *m.Data
	s.home = &home
	return []types.Message{types.Wrap(s.me, types.HomePositionChanged{Home: home})}
}

func (s *screen) kindOrActive(k mission.Kind) mission.Kind {
	if k == "" {
		return s.session.ActiveTab()
	}
	return k
}

func (s *screen) out(payload types.Outbound) types.Message {
	return types.CreateMessage(types.TypeName(payload), s.me, "backend", payload)
}

func (s *screen) notify(level types.NotificationLevel, text string) types.Message {
	return types.Notify(s.me, level, text)
}

func (s *screen) changed(k mission.Kind) types.Message {
	items := make([]mission.Item, len(s.collections[k]))
	copy(items, s.collections[k])
	return types.Wrap(s.me, types.CollectionChanged{Kind: k, Items: items})
}
