// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import (
	"testing"
	"unsafe"
)

func mapTestSpan(t *testing.T, pt PageType) *Span {
	t.Helper()
	base, mappedSize, offset, err := currentMapper().mmap(SpanSize, SpanSize)
	if err != nil {
		t.Fatalf("mmap: %v", err)
	}
	t.Cleanup(func() {
		_ = currentMapper().munmap(base, mappedSize, offset, true)
	})
	s := (*Span)(unsafe.Pointer(base))
	*s = Span{}
	s.pageType = pt
	s.pageSize = pageSizeForType(pt)
	s.totalPages = SpanSize / s.pageSize
	s.mappedBase = base
	s.mappedSize = mappedSize
	s.mappedOffset = offset
	return s
}

func TestSpanOfRecoversHeaderFromInteriorPointer(t *testing.T) {
	s := mapTestSpan(t, PageSmall)
	interior := s.base() + SpanSize/2 + 123
	if got := spanOf(interior); got != s {
		t.Fatalf("spanOf(interior) = %p, want %p", got, s)
	}
}

func TestSpanAllocatePageReservesHeaderPage(t *testing.T) {
	s := mapTestSpan(t, PageSmall)
	class, ok := classForSize(32)
	if !ok {
		t.Fatal("expected a size class for 32 bytes")
	}
	p := spanAllocatePage(s, class)
	if idx := s.pageIndexOf(uintptr(unsafe.Pointer(p))); idx == 0 {
		t.Fatal("multi-page span carved blocks into its own header page")
	}
}

func TestSpanAllocatePageSingleLargePageUsesIndexZero(t *testing.T) {
	s := mapTestSpan(t, PageLarge)
	class, ok := classForSize(largeSizeMax)
	if !ok {
		t.Fatal("expected a size class for largeSizeMax")
	}
	p := spanAllocatePage(s, class)
	if idx := s.pageIndexOf(uintptr(unsafe.Pointer(p))); idx != 0 {
		t.Fatalf("single-page span should carve from index 0, got %d", idx)
	}
}

func TestPageOfRoundTrips(t *testing.T) {
	s := mapTestSpan(t, PageSmall)
	class, _ := classForSize(32)
	p := spanAllocatePage(s, class)
	addr := p.blockAddr(0)
	gotSpan, gotPage := pageOf(addr)
	if gotSpan != s || gotPage != p {
		t.Fatal("pageOf did not recover the span/page that owns addr")
	}
}
