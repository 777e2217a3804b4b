package object

import (
	"strconv"

	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// sparseHoleRatioThreshold: an ArrayObject migrates from fast to sparse
// mode once a delete pushes the fraction of holes in the dense region
// above this ratio (spec §3.5, "~50%").
const sparseHoleRatioThreshold = 0.5

// maxDenseIndex is the spec's dense-path upper bound: string keys parsing
// as a non-negative integer within [0, 2^53-1) take the dense path.
const maxDenseIndex = uint64(1)<<53 - 1

// ArrayObject specializes Object with the fast/sparse dual representation
// of spec §3.5.
type ArrayObject struct {
	Object

	// Fast mode fields. dense[i] holds index i's value; denseExists[i]
	// distinguishes a hole from an explicit undefined.
	dense       []value.Value
	denseExists []bool
	length      uint64

	sparse bool
	// In sparse mode, indexed elements live in sparseSlots keyed by their
	// numeric index.
	sparseSlots map[uint64]value.Value
}

// NewArray creates an empty fast-mode array.
func NewArray(manager *shape.Manager, proto value.Value) *ArrayObject {
	a := &ArrayObject{}
	a.Shape = manager.EmptyShape()
	a.Proto = proto
	a.Class = ClassArray
	a.manager = manager
	return a
}

func (a *ArrayObject) HeapKind() value.Kind { return value.KindArrayObject }

// Length returns the virtual `length` property.
func (a *ArrayObject) Length() uint64 { return a.length }

// parseIndex reports whether key is a valid dense array index.
func parseIndex(key string) (uint64, bool) {
	if key == "" {
		return 0, false
	}
	if key == "0" {
		return 0, true
	}
	if key[0] == '0' {
		return 0, false // no leading zeros
	}
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil || n >= maxDenseIndex {
		return 0, false
	}
	return n, true
}

// GetIndex reads index i, returning (value, exists). In both fast and
// sparse mode this returns the same observable result (spec invariant 4).
func (a *ArrayObject) GetIndex(i uint64) (value.Value, bool) {
	if a.sparse {
		v, ok := a.sparseSlots[i]
		return v, ok
	}
	if i >= uint64(len(a.dense)) {
		return value.Undefined(), false
	}
	if !a.denseExists[i] {
		return value.Undefined(), false
	}
	return a.dense[i], true
}

// SetIndex writes index i. Assigning past length grows the dense region
// with holes up to that index (spec §3.5).
func (a *ArrayObject) SetIndex(i uint64, v value.Value) {
	if a.sparse {
		if a.sparseSlots == nil {
			a.sparseSlots = make(map[uint64]value.Value)
		}
		a.sparseSlots[i] = v
		if i+1 > a.length {
			a.length = i + 1
		}
		return
	}
	if i >= uint64(len(a.dense)) {
		grownLen := i + 1
		grown := make([]value.Value, grownLen)
		grownEx := make([]bool, grownLen)
		copy(grown, a.dense)
		copy(grownEx, a.denseExists)
		a.dense = grown
		a.denseExists = grownEx
	}
	a.dense[i] = v
	a.denseExists[i] = true
	if i+1 > a.length {
		a.length = i + 1
	}
}

// DeleteIndex removes index i, leaving a hole. If the resulting hole ratio
// crosses the threshold, the array migrates to sparse mode (one-way per
// spec §3.5).
func (a *ArrayObject) DeleteIndex(i uint64) {
	if a.sparse {
		delete(a.sparseSlots, i)
		return
	}
	if i < uint64(len(a.dense)) {
		a.dense[i] = value.Value{}
		a.denseExists[i] = false
	}
	if a.holeRatio() > sparseHoleRatioThreshold {
		a.migrateToSparse()
	}
}

func (a *ArrayObject) holeRatio() float64 {
	if len(a.denseExists) == 0 {
		return 0
	}
	holes := 0
	for _, exists := range a.denseExists {
		if !exists {
			holes++
		}
	}
	return float64(holes) / float64(len(a.denseExists))
}

// migrateToSparse moves every surviving dense element into the hash-table
// region keyed by numeric index and drops the dense region. This
// transition is one-way: SetLength / further deletes on a sparse array
// never migrate back to fast mode.
func (a *ArrayObject) migrateToSparse() {
	a.sparseSlots = make(map[uint64]value.Value, len(a.dense))
	for i, exists := range a.denseExists {
		if exists {
			a.sparseSlots[uint64(i)] = a.dense[i]
		}
	}
	a.dense = nil
	a.denseExists = nil
	a.sparse = true
}

// SetLength implements the virtual `length` setter: growing pads with
// holes, shrinking truncates (spec §3.5).
func (a *ArrayObject) SetLength(n uint64) {
	if a.sparse {
		if n < a.length {
			for i := n; i < a.length; i++ {
				delete(a.sparseSlots, i)
			}
		}
		a.length = n
		return
	}
	if n >= uint64(len(a.dense)) {
		grown := make([]value.Value, n)
		grownEx := make([]bool, n)
		copy(grown, a.dense)
		copy(grownEx, a.denseExists)
		a.dense = grown
		a.denseExists = grownEx
	} else {
		a.dense = a.dense[:n]
		a.denseExists = a.denseExists[:n]
	}
	a.length = n
}

// IsSparse reports whether the array has migrated to sparse mode.
func (a *ArrayObject) IsSparse() bool { return a.sparse }

// Trace extends Object.Trace with the array's own element storage, dense
// or sparse (spec §4.5 scan phase).
func (a *ArrayObject) Trace(visit func(*value.Value)) {
	a.Object.Trace(visit)
	if a.sparse {
		for i := range a.sparseSlots {
			v := a.sparseSlots[i]
			visit(&v)
			a.sparseSlots[i] = v
		}
		return
	}
	for i := range a.dense {
		visit(&a.dense[i])
	}
}
