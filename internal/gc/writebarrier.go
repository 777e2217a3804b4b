package gc

import "jsvm/internal/value"

// WriteBarrier must be called after storing newVal into a field owned by
// owner (an object.Object.Set, ArrayObject.SetIndex, or any other in-place
// field write). If owner lives in old space and newVal points at a
// new-space object, owner is added to the remembered set so the next
// young collection treats it as a root (spec §4.5 "Write barrier").
func (h *Heap) WriteBarrier(owner value.HeapObject, newVal value.Value) {
	ownerRec, ok := h.objIndex[owner]
	if !ok || ownerRec.Header.Generation != GenOld {
		return
	}
	childRec, ok := h.recordOf(newVal)
	if !ok || childRec.Header.Generation != GenNew {
		return
	}
	h.remembered[ownerRec] = struct{}{}
}
