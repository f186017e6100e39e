package missionscreen

import (
	"fmt"
	"log"
	"time"

	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/types"
)

// uploadSession tracks the single upload allowed at a time
type uploadSession struct {
	id        int
	inFlight  bool
	kind      mission.Kind
	startedAt time.Time
	stop      func() bool
	// sent is the collection as uploaded, seq set to the upload index
	sent      []mission.Item
}

func (u *uploadSession) stopTimer() {
	if u.stop != nil {
		u.stop()
		u.stop = nil
	}
}

func (u *uploadSession) finish() {
	u.stopTimer()
	u.inFlight = false
	u.sent = nil
}

func (s *screen) read(kind mission.Kind) []types.Message {
	if !s.connected {
		return []types.Message{s.notify(types.LevelError, "Not connected to drone")}
	}
	return []types.Message{s.out(types.GetCurrentMission{Type: kind})}
}

func (s *screen) handleCurrentMission(m types.CurrentMission) []types.Message {
	if !m.Success {
		return []types.Message{s.notify(types.LevelError, m.Message)}
	}
	kind, err := mission.ParseKind(m.MissionType)
	if err != nil {
		log.Printf("MissionScreen: %v", err)
		return nil
	}

	switch kind {
	case mission.KindMission:
		s.collections[kind] = mission.Reconcile(s.collections[kind], m.Items)
	default:
		s.collections[kind] = append([]mission.Item{}, m.Items...)
	}

	return []types.Message{
		s.changed(kind),
		s.notify(types.LevelSuccess, fmt.Sprintf("%s read successfully", m.MissionType)),
	}
}

func (s *screen) write(kind mission.Kind) []types.Message {
	if !s.connected {
		return []types.Message{s.notify(types.LevelError, "Not connected to drone")}
	}
	if s.upload.inFlight {
		return []types.Message{s.notify(types.LevelError, "Mission upload already in progress")}
	}
	items := s.collections[kind]
	if len(items) == 0 {
		return []types.Message{s.notify(types.LevelError, fmt.Sprintf("No %s items to upload", kind))}
	}

	s.upload.id++
	id := s.upload.id
	s.upload.inFlight = true
	s.upload.kind = kind
	s.upload.startedAt = time.Now()
	s.upload.sent = mission.Renumber(items, 0)
	s.upload.stop = s.opts.AfterFunc(s.opts.UploadTimeout, func() { s.timedOut(id) })

	return []types.Message{
		s.out(types.UploadMission{Type: kind, MissionData: mission.FormatForUpload(items)}),
		types.Wrap(s.me, types.UploadStarted{Kind: kind, Count: len(items)}),
	}
}

// timedOut runs on the timer goroutine and hands the expiry to the handler loop
func (s *screen) timedOut(id int) {
	select {
	case s.inbox <- types.Wrap(s.me, types.UploadTimedOut{Session: id}):
	case <-s.done:
	}
}

func (s *screen) handleUploadTimedOut(m types.UploadTimedOut) []types.Message {
	if !s.upload.inFlight || s.upload.id != m.Session {
		return nil
	}
	kind := s.upload.kind
	log.Printf("MissionScreen: %s upload timed out after %v", kind, time.Since(s.upload.startedAt).Round(time.Millisecond))
	s.upload.finish()
	return []types.Message{
		s.notify(types.LevelError, "Mission upload timed out. Please try again."),
		types.Wrap(s.me, types.UploadFinished{Kind: kind, Outcome: types.UploadTimeout}),
	}
}

func (s *screen) handleUploadResult(m types.UploadMissionResult) []types.Message {
	level := types.LevelError
	if m.Success {
		level = types.LevelSuccess
	}
	out := []types.Message{s.notify(level, m.Message)}

	if !s.upload.inFlight {
		log.Printf("MissionScreen: upload result after the session was closed: %s", m.Message)
		outcome := types.UploadFailed
		if m.Success {
			outcome = types.UploadSucceeded
		}
		return append(out, types.Wrap(s.me, types.UploadFinished{Kind: s.upload.kind, Outcome: outcome, Late: true}))
	}

	kind := s.upload.kind
	sent := s.upload.sent
	s.upload.finish()
	outcome := types.UploadFailed
	if m.Success {
		outcome = types.UploadSucceeded
		s.collections[kind] = mission.Acknowledge(s.collections[kind], sent)
		out = append(out, s.changed(kind))
	}
	return append(out, types.Wrap(s.me, types.UploadFinished{Kind: kind, Outcome: outcome}))
}
