package gc

// NewSpace holds the two semi-spaces young objects bump-allocate into
// (spec §4.5 "Layout"): active is the current from-space new allocations
// land in; standby is reserved as to-space for the next young collection's
// copy phase. A young collection swaps the two.
type NewSpace struct {
	active  *space
	standby *space
}

// NewNewSpace builds a NewSpace with each semi-space sized to semiSize
// bytes.
func NewNewSpace(semiSize uint32) *NewSpace {
	return &NewSpace{active: newSpace(semiSize), standby: newSpace(semiSize)}
}

// Allocate bump-allocates rec into the active semi-space, reporting
// whether there was room. A false return means the caller must trigger a
// young collection and retry.
func (ns *NewSpace) Allocate(rec *Record) bool {
	if !ns.active.bump(rec.Header.Size) {
		return false
	}
	rec.Header.Generation = GenNew
	ns.active.add(rec)
	return true
}

// UsedRatio reports how full the active semi-space is, the input to the
// GC trigger policy's gc_threshold% check.
func (ns *NewSpace) UsedRatio() float64 {
	if ns.active.limit == 0 {
		return 0
	}
	return float64(ns.active.used) / float64(ns.active.limit)
}

// Swap exchanges active and standby and resets the new standby (the old
// active, now empty of live survivors) back to empty, per spec §4.5 step 5
// "Swap semi-spaces; reset to_space_top".
func (ns *NewSpace) Swap() {
	ns.active, ns.standby = ns.standby, ns.active
	ns.standby.reset()
}
