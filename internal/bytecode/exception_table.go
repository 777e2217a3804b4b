package bytecode

import "fmt"

// ExceptionTableEntry is one protected-region record, matching the 7-field
// layout spec §3.7/§6.2 specifies. Either the catch range or the finally
// range (or both) must be present; a region with neither is meaningless
// and rejected by Validate.
type ExceptionTableEntry struct {
	TryStartPC uint32
	TryEndPC   uint32

	// CatchStartPC/CatchEndPC are zero (both) when this region has no
	// catch clause, e.g. a bare try/finally.
	CatchStartPC   uint32
	CatchEndPC     uint32
	CatchErrVarIdx uint32 // local slot the caught value is stored into

	// FinallyStartPC/FinallyEndPC are zero (both) when this region has no
	// finally clause.
	FinallyStartPC uint32
	FinallyEndPC   uint32
}

// HasCatch reports whether e carries a catch range.
func (e ExceptionTableEntry) HasCatch() bool {
	return e.CatchStartPC != 0 || e.CatchEndPC != 0
}

// HasFinally reports whether e carries a finally range.
func (e ExceptionTableEntry) HasFinally() bool {
	return e.FinallyStartPC != 0 || e.FinallyEndPC != 0
}

// Covers reports whether pc falls inside this entry's protected region.
func (e ExceptionTableEntry) Covers(pc uint32) bool {
	return pc >= e.TryStartPC && pc < e.TryEndPC
}

// ExceptionTable is a function's list of protected regions. The VM's
// unwind loop (spec §4.4) asks it for the innermost entry covering the
// faulting PC, so the result does not depend on the order in which nested
// regions were appended.
type ExceptionTable []ExceptionTableEntry

// FindHandler returns the innermost entry covering pc (the one with the
// narrowest try range; the earlier entry wins a tie), or ok=false if none
// does (the unwind must then pop to the caller frame).
func (t ExceptionTable) FindHandler(pc uint32) (entry ExceptionTableEntry, ok bool) {
	for _, e := range t {
		if !e.Covers(pc) {
			continue
		}
		if !ok || e.TryEndPC-e.TryStartPC < entry.TryEndPC-entry.TryStartPC {
			entry, ok = e, true
		}
	}
	return entry, ok
}

// Validate checks every entry carries at least one of a catch or finally
// range and that its try range is non-empty, per spec §3.7.
func (t ExceptionTable) Validate() error {
	for i, e := range t {
		if e.TryStartPC >= e.TryEndPC {
			return fmt.Errorf("bytecode: exception table entry %d has empty try range [%d, %d)", i, e.TryStartPC, e.TryEndPC)
		}
		if !e.HasCatch() && !e.HasFinally() {
			return fmt.Errorf("bytecode: exception table entry %d has neither a catch nor a finally range", i)
		}
	}
	return nil
}
