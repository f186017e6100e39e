package mission

// nonPositional commands carry no meaningful location and are never drawn on the map
var nonPositional = map[Command]struct{}{
	CmdDoJump:         {},
	CmdJumpTag:        {},
	CmdDoJumpTag:      {},
	CmdConditionDelay: {},
	CmdConditionAlt:   {},
	CmdConditionDist:  {},
	CmdConditionYaw:   {},
	CmdDoChangeSpeed:  {},
	CmdDoSetRelay:     {},
	CmdDoRepeatRelay:  {},
	CmdDoSetServo:     {},
	CmdDoRepeatServo:  {},
}

// IsPlottable reports whether the item has a map position
func (i Item) IsPlottable() bool {
	_, skip := nonPositional[i.Command]
	return !skip
}

// Plottable returns the items that can be drawn, preserving order.
// Coordinates of (0, 0) are kept.
func Plottable(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.IsPlottable() {
			out = append(out, it)
		}
	}
	return out
}
