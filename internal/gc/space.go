package gc

// space is a bump-allocated region: it tracks a byte budget (limit) and
// how much of it is claimed (used), plus the records living in it in
// allocation order. Both NewSpace's semi-spaces and OldSpace's single
// region are built from this.
type space struct {
	records []*Record
	used    uint32
	limit   uint32
}

func newSpace(limit uint32) *space {
	return &space{limit: limit}
}

// bump reserves size bytes against the budget, reporting whether there was
// room. It does not append rec; callers append after a successful bump so
// a failed allocation never mutates records.
func (s *space) bump(size uint32) bool {
	if s.used+size > s.limit {
		return false
	}
	s.used += size
	return true
}

func (s *space) add(rec *Record) {
	s.records = append(s.records, rec)
}

// reset clears the space back to empty, keeping its backing array's
// capacity (the analog of "reset to_space_top" after a swap, or "reset
// top" after a compact).
func (s *space) reset() {
	s.records = s.records[:0]
	s.used = 0
}

// grow replaces limit with a larger budget (spec §4.5 old-space "If a grow
// is needed, allocate a larger backing region").
func (s *space) grow(newLimit uint32) {
	s.limit = newLimit
}
