package missionscreen

import (
	"fmt"
	"log"

	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/types"
)

func (s *screen) insert(m types.InsertCommand) []types.Message {
	items, it := mission.Insert(s.collections[mission.KindMission], m.Command, m.At)
	s.collections[mission.KindMission] = items
	return []types.Message{
		s.changed(mission.KindMission),
		s.notify(types.LevelInfo, fmt.Sprintf("Inserted %s", it.Command.Label())),
	}
}

func (s *screen) deleteNearest(m types.DeleteNearest) []types.Message {
	items, _, ok := mission.DeleteNearest(s.collections[mission.KindMission], m.At)
	if !ok {
		return []types.Message{s.notify(types.LevelInfo, "No mission items to delete")}
	}
	s.collections[mission.KindMission] = items
	return []types.Message{
		s.changed(mission.KindMission),
		s.notify(types.LevelInfo, "Deleted nearest item"),
	}
}

func (s *screen) move(m types.MoveItem) []types.Message {
	if m.Kind == mission.KindFence {
		log.Printf("MissionScreen: fence items cannot be moved")
		return nil
	}
	items, ok := mission.Move(s.collections[m.Kind], m.ID, m.To)
	if !ok {
		log.Printf("MissionScreen: no %s item %q to move", m.Kind, m.ID)
		return nil
	}
	s.collections[m.Kind] = items
	return []types.Message{s.changed(m.Kind)}
}
