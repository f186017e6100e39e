package missionscreen

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/store"
	"github.com/tiiuae/groundcontrol/internal/types"
)

const storeTimeout = 5 * time.Second

func (s *screen) snapshot() map[mission.Kind][]mission.Item {
	out := make(map[mission.Kind][]mission.Item, len(s.collections))
	for k, items := range s.collections {
		out[k] = append([]mission.Item{}, items...)
	}
	return out
}

func (s *screen) save(name string) []types.Message {
	if s.opts.Store == nil {
		return []types.Message{s.notify(types.LevelError, "Mission storage is not configured")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := s.opts.Store.SaveSnapshot(ctx, name, s.snapshot(), time.Now()); err != nil {
		return []types.Message{s.notify(types.LevelError, fmt.Sprintf("Saving %s failed: %v", name, err))}
	}
	return []types.Message{s.notify(types.LevelSuccess, fmt.Sprintf("Saved mission %s", name))}
}

// importSnapshot replaces the saved collections. Imported items count as not uploaded.
func (s *screen) importSnapshot(name string) []types.Message {
	if s.opts.Store == nil {
		return []types.Message{s.notify(types.LevelError, "Mission storage is not configured")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	snaps, err := s.opts.Store.LoadSnapshot(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return []types.Message{s.notify(types.LevelError, fmt.Sprintf("No saved mission named %s", name))}
	}
	if err != nil {
		return []types.Message{s.notify(types.LevelError, fmt.Sprintf("Importing %s failed: %v", name, err))}
	}

	var out []types.Message
	for _, snap := range snaps {
		if _, ok := s.collections[snap.Kind]; !ok {
			continue
		}
		s.collections[snap.Kind] = mission.Localize(snap.Items)
		out = append(out, s.changed(snap.Kind))
	}
	return append(out, s.notify(types.LevelSuccess, fmt.Sprintf("Imported mission %s", name)))
}

func (s *screen) listSnapshots() []types.Message {
	if s.opts.Store == nil {
		return []types.Message{s.notify(types.LevelError, "Mission storage is not configured")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	names, err := s.opts.Store.SnapshotNames(ctx)
	if err != nil {
		return []types.Message{s.notify(types.LevelError, fmt.Sprintf("Listing saved missions failed: %v", err))}
	}
	return []types.Message{types.Wrap(s.me, types.SnapshotList{Names: names})}
}

func (s *screen) export(path string) []types.Message {
	if s.opts.Export == nil {
		return []types.Message{s.notify(types.LevelError, "Export is not available")}
	}
	if err := s.opts.Export(path, s.snapshot()); err != nil {
		return []types.Message{s.notify(types.LevelError, fmt.Sprintf("Export failed: %v", err))}
	}
	return []types.Message{s.notify(types.LevelSuccess, fmt.Sprintf("Exported to %s", path))}
}
