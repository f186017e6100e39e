package mission

// Reconcile merges freshly read backend items with the collection currently shown.
//
// Remote items from incoming are taken as is (incoming entries marked Local are dropped).
// Local items from previous are appended after them. A local item keeps its seq when it is
// above every remote seq and not shared with another kept local item, otherwise it gets the
// next free number above the highest remote seq. Running Reconcile again on its own output
// with the same incoming items returns the same collection.
//
// Remote seqs are expected to be unique. Gaps in the numbering are allowed here and removed
// when the collection is uploaded or an item is deleted.
func Reconcile(previous []Item, incoming []Item) []Item {
	result := make([]Item, 0, len(previous)+len(incoming))
	for _, it := range incoming {
		if it.Origin == Remote {
			result = append(result, it)
		}
	}
	maxRemoteSeq := maxSeq(result)

	locals := make([]Item, 0, len(previous))
	for _, it := range previous {
		if it.Origin == Local {
			locals = append(locals, it)
		}
	}

	taken := make(map[int]bool, len(locals))
	keep := make([]bool, len(locals))
	for i, it := range locals {
		if it.Seq > maxRemoteSeq && !taken[it.Seq] {
			taken[it.Seq] = true
			keep[i] = true
		}
	}

	next := maxRemoteSeq + 1
	for i, it := range locals {
		if !keep[i] {
			for taken[next] {
				next++
			}
			it.Seq = next
			taken[next] = true
			next++
		}
		result = append(result, it)
	}
	return result
}
