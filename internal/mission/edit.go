package mission

import (
	"github.com/tiiuae/groundcontrol/internal/coordinates"
)

// NextSeq is the seq a newly inserted item gets
func NextSeq(items []Item) int {
	if len(items) == 0 {
		return 1
	}
	return maxSeq(items) + 1
}

// NewItem builds a local item at the given position with the station defaults
func NewItem(items []Item, command Command, at coordinates.LatLng) Item {
	it := Item{
		ID:           NewLocalID(),
		Origin:       Local,
		Seq:          NextSeq(items),
		Command:      command,
		Frame:        FrameGlobalRelativeAlt,
		Autocontinue: 1,
	}
	it.SetPosition(at)
	return it
}

// Insert appends a new local item and returns the new collection together with the item
func Insert(items []Item, command Command, at coordinates.LatLng) ([]Item, Item) {
	it := NewItem(items, command, at)
	out := make([]Item, 0, len(items)+1)
	out = append(out, items...)
	return append(out, it), it
}

// Nearest returns the index in items of the plottable item closest to the point.
// Distance is the flat squared difference in degrees. The first of equally near items wins.
func Nearest(items []Item, at coordinates.LatLng) (int, bool) {
	best := -1
	var bestDist float64
	for i, it := range items {
		if !it.IsPlottable() {
			continue
		}
		d := coordinates.SquaredDistance(at, it.Position())
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, best >= 0
}

// DeleteNearest removes the plottable item closest to the point and renumbers the
// remaining items 1..N in their current order.
// It returns false and the unchanged collection when nothing can be removed.
func DeleteNearest(items []Item, at coordinates.LatLng) ([]Item, Item, bool) {
	idx, ok := Nearest(items, at)
	if !ok {
		return items, Item{}, false
	}
	removed := items[idx]
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	return Renumber(out, 1), removed, true
}

// Renumber assigns consecutive seqs starting at first
func Renumber(items []Item, first int) []Item {
	out := clone(items)
	for i := range out {
		out[i].Seq = first + i
	}
	return out
}

// Move relocates the item with the given id. Unknown ids leave the collection as is.
func Move(items []Item, id string, to coordinates.LatLng) ([]Item, bool) {
	for i := range items {
		if items[i].ID == id {
			out := clone(items)
			out[i].SetPosition(to)
			return out, true
		}
	}
	return items, false
}

// Acknowledge applies a confirmed upload to the current collection. sent is the
// collection as it was uploaded, with seq set to the upload index.
//
// Items that still match what was sent become Remote and take their uploaded seq.
// Items created or changed after the upload started are not on the vehicle, so they
// stay Local and are numbered after the uploaded ones, the same way Reconcile does.
func Acknowledge(items []Item, sent []Item) []Item {
	uploaded := make(map[string]Item, len(sent))
	for _, it := range sent {
		uploaded[it.ID] = it
	}

	var confirmed, pending []Item
	for _, it := range items {
		if s, ok := uploaded[it.ID]; ok && sameContent(it, s) {
			it.Origin = Remote
			it.Seq = s.Seq
			confirmed = append(confirmed, it)
			continue
		}
		it.Origin = Local
		pending = append(pending, it)
	}
	return Reconcile(pending, confirmed)
}

// sameContent compares everything the wire carries except seq
func sameContent(a Item, b Item) bool {
	return a.Command == b.Command && a.Frame == b.Frame && a.Current == b.Current &&
		a.Autocontinue == b.Autocontinue &&
		a.Param1 == b.Param1 && a.Param2 == b.Param2 && a.Param3 == b.Param3 && a.Param4 == b.Param4 &&
		a.X == b.X && a.Y == b.Y && a.Z == b.Z
}

// Localize marks every item as local, used for collections loaded from disk
func Localize(items []Item) []Item {
	out := clone(items)
	for i := range out {
		out[i].Origin = Local
		if out[i].ID == "" {
			out[i].ID = NewLocalID()
		}
	}
	return out
}

// CountLocal returns how many items have not been uploaded yet
func CountLocal(items []Item) int {
	n := 0
	for _, it := range items {
		if it.Origin == Local {
			n++
		}
	}
	return n
}
