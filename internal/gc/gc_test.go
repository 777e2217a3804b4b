package gc

import (
	"testing"

	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

func smallHeap() *Heap {
	return NewHeap(Config{SemiSize: 4096, OldInitialSize: 4096, LargeObjectThreshold: 1 << 20})
}

func TestAllocationRoutesLargeObjectsToOldSpace(t *testing.T) {
	h := NewHeap(Config{SemiSize: 4096, OldInitialSize: 1 << 20, LargeObjectThreshold: 256})
	s := h.OpenScope()
	defer s.Close()

	m := shape.NewManager()
	big := object.New(m, value.Null(), object.ClassGeneric)
	handle := s.New(value.KindObject, big, 512)

	if handle.Record().Header.Generation != GenOld {
		t.Fatalf("expected large allocation to land in old space, got generation %v", handle.Record().Header.Generation)
	}
	if len(h.young.active.records) != 0 {
		t.Fatalf("expected new space untouched by a large allocation, got %d records", len(h.young.active.records))
	}
	if len(h.old.records) != 1 {
		t.Fatalf("expected old space to hold the large object, got %d records", len(h.old.records))
	}
}

func TestYoungCollectionReclaimsUnrootedObjects(t *testing.T) {
	h := smallHeap()
	m := shape.NewManager()

	kept := object.New(m, value.Null(), object.ClassGeneric)
	dropped := object.New(m, value.Null(), object.ClassGeneric)

	s := h.OpenScope()
	keptHandle := s.NewObject(value.KindObject, kept)
	_ = keptHandle
	// dropped is allocated but never rooted by a handle.
	h.alloc(value.KindObject, dropped, EstimateSize(value.KindObject))

	if _, ok := h.objIndex[kept]; !ok {
		t.Fatal("expected kept object registered before collection")
	}
	if _, ok := h.objIndex[dropped]; !ok {
		t.Fatal("expected dropped object registered before collection")
	}

	h.CollectYoung()

	if _, ok := h.objIndex[kept]; !ok {
		t.Error("expected the handle-rooted object to survive young collection")
	}
	if _, ok := h.objIndex[dropped]; ok {
		t.Error("expected the unrooted object to be reclaimed by young collection")
	}
	s.Close()
}

func TestChildKeptAliveThroughParentReference(t *testing.T) {
	h := smallHeap()
	m := shape.NewManager()

	child := object.New(m, value.Null(), object.ClassGeneric)
	parent := object.New(m, value.Null(), object.ClassGeneric)

	s := h.OpenScope()
	defer s.Close()

	h.alloc(value.KindObject, child, EstimateSize(value.KindObject))
	s.NewObject(value.KindObject, parent)

	// Only the parent is rooted directly; it reaches child through one of
	// its property slots (mirrors the C++ suite's TestHeapObjectWithRef).
	if err := parent.Set("proto-ref", value.FromHeap(value.KindObject, child), shape.PropertyFlags{Exists: true, Writable: true, Enumerable: true}, nil); err != nil {
		t.Fatal(err)
	}

	h.CollectYoung()

	if _, ok := h.objIndex[child]; !ok {
		t.Error("expected child reachable through parent's slot to survive")
	}
}

func TestPromotionAfterSurvivingThreshold(t *testing.T) {
	h := smallHeap()
	m := shape.NewManager()
	obj := object.New(m, value.Null(), object.ClassGeneric)

	s := h.OpenScope()
	defer s.Close()
	handle := s.NewObject(value.KindObject, obj)

	for i := 0; i <= DefaultPromotionAge; i++ {
		h.CollectYoung()
	}

	if handle.Record().Header.Generation != GenOld {
		t.Errorf("expected object to be promoted after surviving %d young collections, generation is %v",
			DefaultPromotionAge+1, handle.Record().Header.Generation)
	}
}

func TestHandleScopeCloseDropsRoots(t *testing.T) {
	h := smallHeap()
	m := shape.NewManager()
	obj := object.New(m, value.Null(), object.ClassGeneric)

	func() {
		s := h.OpenScope()
		defer s.Close()
		s.NewObject(value.KindObject, obj)
	}()

	h.CollectYoung()

	if _, ok := h.objIndex[obj]; ok {
		t.Error("expected object rooted by a closed scope to be reclaimed")
	}
}

func TestWriteBarrierPopulatesRememberedSet(t *testing.T) {
	h := smallHeap()
	m := shape.NewManager()
	oldObj := object.New(m, value.Null(), object.ClassGeneric)
	newObj := object.New(m, value.Null(), object.ClassGeneric)

	oldRec := h.alloc(value.KindObject, oldObj, EstimateSize(value.KindObject))
	oldRec.Header.Generation = GenOld
	h.alloc(value.KindObject, newObj, EstimateSize(value.KindObject))

	h.WriteBarrier(oldObj, value.FromHeap(value.KindObject, newObj))

	if _, ok := h.remembered[oldRec]; !ok {
		t.Error("expected an old-to-new field write to populate the remembered set")
	}
}

func TestNewSpaceSwapResetsStandby(t *testing.T) {
	ns := NewNewSpace(1024)
	rec := &Record{Header: ObjectHeader{Size: 16, Kind: value.KindObject}}
	if !ns.Allocate(rec) {
		t.Fatal("expected room for a small allocation")
	}
	if len(ns.active.records) != 1 {
		t.Fatalf("expected 1 record in active space, got %d", len(ns.active.records))
	}
	ns.Swap()
	if len(ns.active.records) != 0 {
		t.Error("expected the newly active (former standby) space to start empty")
	}
}

func TestManagerForceFullCollectionCompactsOldSpace(t *testing.T) {
	mgr := NewManagerWithConfig(Config{SemiSize: 4096, OldInitialSize: 4096, LargeObjectThreshold: 1})
	m := shape.NewManager()
	live := object.New(m, value.Null(), object.ClassGeneric)
	dead := object.New(m, value.Null(), object.ClassGeneric)

	s := mgr.OpenScope()
	defer s.Close()
	s.NewObject(value.KindObject, live) // large-object threshold of 1 forces old space
	mgr.Heap().alloc(value.KindObject, dead, EstimateSize(value.KindObject))

	mgr.ForceFullCollection()

	stats := mgr.Stats()
	if stats.GCCount == 0 {
		t.Error("expected ForceFullCollection to count as a collection")
	}
	if _, ok := mgr.Heap().objIndex[dead]; ok {
		t.Error("expected the unrooted old-space object to be compacted away")
	}
	if _, ok := mgr.Heap().objIndex[live]; !ok {
		t.Error("expected the rooted old-space object to survive compaction")
	}
}
