package mission

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// WireItem is the upload representation of an item
type WireItem struct {
	Seq          int     `json:"seq"`
	Frame        int     `json:"frame"`
	Command      Command `json:"command"`
	Current      int     `json:"current"`
	Autocontinue int     `json:"autocontinue"`
	Param1       float64 `json:"param1"`
	Param2       float64 `json:"param2"`
	Param3       float64 `json:"param3"`
	Param4       float64 `json:"param4"`
	X            int32   `json:"x"`
	Y            int32   `json:"y"`
	Z            float64 `json:"z"`
}

// FormatForUpload converts a collection to its wire form with seq set to the array index
func FormatForUpload(items []Item) []WireItem {
	out := make([]WireItem, len(items))
	for i, it := range items {
		out[i] = WireItem{
			Seq:          i,
			Frame:        it.Frame,
			Command:      it.Command,
			Current:      it.Current,
			Autocontinue: it.Autocontinue,
			Param1:       it.Param1,
			Param2:       it.Param2,
			Param3:       it.Param3,
			Param4:       it.Param4,
			X:            it.X,
			Y:            it.Y,
			Z:            it.Z,
		}
	}
	return out
}

// backendItem tracks which fields the backend actually sent
type backendItem struct {
	ID           *string         `json:"id"`
	Seq          json.RawMessage `json:"seq"`
	Frame        *float64        `json:"frame"`
	Command      *float64        `json:"command"`
	Current      *float64        `json:"current"`
	Autocontinue *float64        `json:"autocontinue"`
	Param1       *float64        `json:"param1"`
	Param2       *float64        `json:"param2"`
	Param3       *float64        `json:"param3"`
	Param4       *float64        `json:"param4"`
	X            *float64        `json:"x"`
	Y            *float64        `json:"y"`
	Z            *float64        `json:"z"`
}

// DecodeItems parses items received from the backend. Every item is Remote.
// Absent frame, command and autocontinue default to 3, 16 and 1, other absent numbers to 0,
// and a missing id is replaced by a fresh one.
func DecodeItems(data []byte) ([]Item, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []Item{}, nil
	}
	var raw []backendItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WithMessage(err, "decode mission items")
	}
	items := make([]Item, len(raw))
	for i, r := range raw {
		items[i] = r.item()
	}
	return items, nil
}

func (r backendItem) item() Item {
	it := Item{
		Origin:       Remote,
		Seq:          parseSeq(r.Seq),
		Frame:        intOr(r.Frame, FrameGlobalRelativeAlt),
		Command:      Command(intOr(r.Command, int(CmdWaypoint))),
		Current:      intOr(r.Current, 0),
		Autocontinue: intOr(r.Autocontinue, 1),
		Param1:       floatOr(r.Param1),
		Param2:       floatOr(r.Param2),
		Param3:       floatOr(r.Param3),
		Param4:       floatOr(r.Param4),
		X:            fixedOr(r.X),
		Y:            fixedOr(r.Y),
		Z:            floatOr(r.Z),
	}
	if r.ID != nil && *r.ID != "" {
		it.ID = *r.ID
	} else {
		it.ID = NewRemoteID()
	}
	return it
}

// parseSeq accepts numbers and numeric strings, anything else counts as 0
func parseSeq(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return nonNegative(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return nonNegative(f)
		}
	}
	return 0
}

func nonNegative(f float64) int {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	return int(f)
}

func intOr(v *float64, def int) int {
	if v == nil {
		return def
	}
	return int(*v)
}

func floatOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func fixedOr(v *float64) int32 {
	if v == nil {
		return 0
	}
	f := math.Round(*v)
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}
