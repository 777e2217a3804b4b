package gc

// OldSpace holds promoted and large objects in a single growable region
// (spec §4.5 "Old space: a single bump region ... exponentially growable
// on failure").
type OldSpace struct {
	*space
}

func NewOldSpace(initialSize uint32) *OldSpace {
	return &OldSpace{space: newSpace(initialSize)}
}

// Allocate bump-allocates rec directly into old space (used for large
// objects and for promotion during a young collection).
func (os *OldSpace) Allocate(rec *Record) bool {
	if !os.space.bump(rec.Header.Size) {
		return false
	}
	rec.Header.Generation = GenOld
	os.space.add(rec)
	return true
}

// GrowAndRetry doubles the backing budget and retries the allocation once,
// modeling spec §4.5's "allocate a larger backing region ... then free the
// old region" (Go's GC reclaims the old space slice once unreferenced; no
// explicit free step is needed).
func (os *OldSpace) GrowAndRetry(rec *Record) bool {
	os.space.grow(os.space.limit * 2)
	return os.Allocate(rec)
}
