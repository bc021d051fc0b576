// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "testing"

func newTestPage(t *testing.T, class int) *Page {
	t.Helper()
	info := sizeClasses[class]
	s := mapTestSpan(t, info.pageType)
	return spanAllocatePage(s, class)
}

func TestPageAllocateDeallocateRoundTrip(t *testing.T) {
	p := newTestPage(t, 0)
	addr, becameFull, ok := p.allocateBlock(false)
	if !ok {
		t.Fatal("allocateBlock failed on a fresh page")
	}
	if becameFull {
		t.Fatal("a fresh multi-block page should not become full after one allocation")
	}
	becameFree, wasFull, handoff := p.deallocateBlock(addr, true)
	if !becameFree {
		t.Fatal("freeing the only live block should report the page free")
	}
	if wasFull || handoff {
		t.Fatalf("unexpected wasFull=%v handoff=%v", wasFull, handoff)
	}
}

func TestPageAllocateUntilFull(t *testing.T) {
	p := newTestPage(t, 0)
	var n uint32
	for {
		_, becameFull, ok := p.allocateBlock(false)
		if !ok {
			t.Fatal("page reported full before blockCount allocations")
		}
		n++
		if becameFull {
			break
		}
	}
	if n != p.blockCount {
		t.Fatalf("page became full after %d allocations, want %d", n, p.blockCount)
	}
	if _, _, ok := p.allocateBlock(false); ok {
		t.Fatal("allocateBlock on a full page should fail")
	}
}

func TestPageCrossThreadHandoffOnLastBlock(t *testing.T) {
	p := newTestPage(t, 0)
	var addrs []uintptr
	for {
		addr, becameFull, ok := p.allocateBlock(false)
		if !ok {
			t.Fatal("page reported full before blockCount allocations")
		}
		addrs = append(addrs, addr)
		if becameFull {
			break
		}
	}

	for i, addr := range addrs {
		handoff := p.pushThreadFree(addr)
		last := i == len(addrs)-1
		if handoff != last {
			t.Fatalf("pushThreadFree(%d) handoff=%v, want %v", i, handoff, last)
		}
	}
}

func TestPageAdoptThreadFreeSplicesLocalList(t *testing.T) {
	p := newTestPage(t, 0)
	a1, _, _ := p.allocateBlock(false)
	a2, _, _ := p.allocateBlock(false)
	// The first allocation carved a run of blocks onto the local list.
	before := p.localFreeCount

	p.pushThreadFree(a1)
	p.pushThreadFree(a2)

	if !p.adoptThreadFree() {
		t.Fatal("adoptThreadFree reported no work despite two pending frees")
	}
	if p.localFreeCount != before+2 {
		t.Fatalf("localFreeCount = %d, want %d", p.localFreeCount, before+2)
	}
	if p.adoptThreadFree() {
		t.Fatal("second adoptThreadFree should find the list empty")
	}
}

func TestPageCanonicalizeAlignedPointer(t *testing.T) {
	p := newTestPage(t, 0)
	addr, _, _ := p.allocateBlock(false)
	p.flags |= pageFlagHasAligned
	shifted := addr + 5
	if got := p.canonicalize(shifted); got != addr {
		t.Fatalf("canonicalize(%x) = %x, want %x", shifted, got, addr)
	}
}
