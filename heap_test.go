// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "testing"

func TestHeapAllocateFromEmptyHeap(t *testing.T) {
	h := newHeap(1)
	ptr, err := h.allocate(16, false)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if ptr == nil {
		t.Fatal("allocate returned nil pointer")
	}
}

func TestHeapAllocateAlignedRejectsBadAlignment(t *testing.T) {
	h := newHeap(1)
	if _, err := h.allocateAligned(3, 16, false); err != ErrInvalidArgument {
		t.Fatalf("non-power-of-two alignment: got %v, want ErrInvalidArgument", err)
	}
	if _, err := h.allocateAligned(SpanSize, 16, false); err != ErrInvalidArgument {
		t.Fatalf("alignment above SpanSize/2: got %v, want ErrInvalidArgument", err)
	}
}

func TestHeapAllocateAlignedSatisfiesAlignment(t *testing.T) {
	h := newHeap(1)
	for _, alignment := range []uintptr{minAlign, 128, 1024, mediumSizeMax} {
		ptr, err := h.allocateAligned(alignment, 64, false)
		if err != nil {
			t.Fatalf("allocateAligned(%d): %v", alignment, err)
		}
		if uintptr(ptr)%alignment != 0 {
			t.Fatalf("pointer %p not aligned to %d", ptr, alignment)
		}
	}
}

func TestHeapAllocateOneIsNoopAlignment(t *testing.T) {
	h := newHeap(1)
	if _, err := h.allocateAligned(1, 16, false); err != nil {
		t.Fatalf("allocateAligned(1, ...): %v", err)
	}
	if _, err := h.allocateAligned(0, 16, false); err != nil {
		t.Fatalf("allocateAligned(0, ...): %v", err)
	}
}

func TestHeapReallocateGrowCopiesData(t *testing.T) {
	h := newHeap(1)
	ptr, err := h.allocate(16, false)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	*(*byte)(ptr) = 0xAB

	grown, err := h.reallocate(ptr, 256, 0)
	if err != nil {
		t.Fatalf("reallocate: %v", err)
	}
	if *(*byte)(grown) != 0xAB {
		t.Fatal("data not preserved across reallocate")
	}
}

func TestHeapReallocateWithinUsableSizeKeepsPointer(t *testing.T) {
	h := newHeap(1)
	ptr, err := h.allocate(64, false)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	usable := UsableSize(ptr)

	again, err := h.reallocate(ptr, usable, 0)
	if err != nil {
		t.Fatalf("reallocate: %v", err)
	}
	if again != ptr {
		t.Fatal("reallocate within the current usable size moved the block")
	}
}

func TestHeapReallocateGrowOrFailReturnsNilOnMove(t *testing.T) {
	h := newHeap(1)
	ptr, err := h.allocate(16, false)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	moved, err := h.reallocate(ptr, 4096, ReallocGrowOrFail)
	if err != nil {
		t.Fatalf("reallocate: %v", err)
	}
	if moved != nil {
		t.Fatal("GROW_OR_FAIL should return nil rather than move the block")
	}
}

func TestHeapHugeAllocationRoundTrip(t *testing.T) {
	h := newHeap(1)
	const size = 12_345_678
	ptr, err := h.allocateHuge(size, false)
	if err != nil {
		t.Fatalf("allocateHuge: %v", err)
	}
	if UsableSize(ptr) < size {
		t.Fatalf("usable size %d < requested %d", UsableSize(ptr), size)
	}
	span, _ := pageOf(uintptr(ptr))
	if span.flags&spanFlagHuge == 0 {
		t.Fatal("expected spanFlagHuge to be set")
	}
	deallocateHuge(span)
}

func TestHeapPromoteFastListServesNextAllocation(t *testing.T) {
	h := newHeap(1)
	class, _ := classForSize(16)
	p, err := h.acquirePageForClass(class)
	if err != nil {
		t.Fatalf("acquirePageForClass: %v", err)
	}
	a1, _, _ := p.allocateBlock(false)
	head := h.fastFree[class]
	if head == 0 {
		t.Fatal("expected the remaining local free list to be promoted to the heap fast list")
	}
	_ = a1
	a2, err := h.allocate(16, false)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if uintptr(a2) != head {
		t.Fatalf("next allocation = %p, want fast-list head %#x", a2, head)
	}
}
