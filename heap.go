// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import (
	"sync/atomic"
	"unsafe"
)

// Heap is the per-thread allocation context spec §3/§4.4 describes: a
// fast single-linked free list per small size class, a partial-page list
// per size class, a free-page list and a thread-free-page list per page
// type, and a partial-span list per page type to source fresh pages
// from. Every field above is touched only by the owning thread except
// threadFreePages, which non-owner threads append to under CAS (spec's
// "ownership" rule: a heap's bookkeeping belongs to exactly one thread,
// with cross-thread frees the sole exception).
type Heap struct {
	id    uint64
	owner atomic.Uint64 // goroutine identity that currently owns this heap; 0 if orphaned

	fastFree []uintptr // per-class single-linked address list, owner-only
	partial  []*Page   // per-class partial-page list head, owner-only

	freePages       [numPageTypes]*Page         // per-page-type free-page list head, owner-only
	threadFreePages [numPageTypes]atomic.Pointer[Page] // per-page-type CAS-linked handoff stack

	spanPartial [numPageTypes]*Span // spans with at least one uninitialized page slot
	allSpans    [numPageTypes]*Span // every span this heap has ever mapped, for Finalize's unmap sweep

	// orphanNext links this heap into the global orphan queue (global.go)
	// when its owning thread calls ThreadFinalize.
	orphanNext *Heap
}

func newHeap(id uint64) *Heap {
	return &Heap{
		id:      id,
		fastFree: make([]uintptr, numClasses),
		partial:  make([]*Page, numClasses),
	}
}

// promoteFastList splices a page's owner-private local free list onto
// the heap's fast-path list for that size class (spec §4.2, step 4:
// "once a page has yielded a block, its remaining local free list is
// promoted to the heap's flat per-class list, so the next allocation of
// that class skips page bookkeeping entirely"). Only small-page classes
// get a fast list; medium/large classes go through the page every time.
func (h *Heap) promoteFastList(p *Page) {
	head := p.localFree
	if head == 0 {
		return
	}
	last := head
	for {
		n := readNextAddr(last)
		if n == 0 {
			break
		}
		last = n
	}
	class := int(p.sizeClass)
	writeNextAddr(last, h.fastFree[class])
	h.fastFree[class] = head

	// Every block handed to the fast list is accounted used from the
	// page's point of view the instant it leaves localFree: the matching
	// decrement happens in deallocateBlock when the owning thread frees
	// one of these blocks, and in adoptThreadFree when a block freed by
	// another thread is taken back from the thread-free list, whether or
	// not it was ever allocated through the page again. Mirrors rpmalloc's span->used += free_count
	// when a free list is handed to the heap cache.
	p.blockUsed += p.localFreeCount
	p.localFree = 0
	p.localFreeCount = 0
}

// --- size-class partial-page list -----------------------------------

func (h *Heap) pushPartial(p *Page) {
	p.prev = nil
	p.next = h.partial[p.sizeClass]
	if p.next != nil {
		p.next.prev = p
	}
	h.partial[p.sizeClass] = p
	p.flags = (p.flags &^ pageFlagFull) | pageFlagAvailable
}

func (h *Heap) removePartial(p *Page) {
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		h.partial[p.sizeClass] = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	}
	p.prev, p.next = nil, nil
}

// --- per-page-type free-page list -------------------------------------

func (h *Heap) popFreePage(pt PageType) *Page {
	p := h.freePages[pt]
	if p == nil {
		return nil
	}
	h.freePages[pt] = p.next
	if p.next != nil {
		p.next.prev = nil
	}
	p.prev, p.next = nil, nil
	return p
}

func (h *Heap) pushFreePage(p *Page) {
	p.prev = nil
	p.next = h.freePages[p.pageType]
	if p.next != nil {
		p.next.prev = p
	}
	h.freePages[p.pageType] = p
	p.flags = pageFlagFree
}

// --- per-page-type thread-free-page handoff stack ---------------------

func (h *Heap) pushThreadFreePage(pt PageType, p *Page) {
	for {
		old := h.threadFreePages[pt].Load()
		p.tfpNext = old
		if h.threadFreePages[pt].CompareAndSwap(old, p) {
			return
		}
	}
}

// adoptThreadFreePages atomically takes the entire handoff stack for pt
// and splices every page onto the ordinary free-page list (spec §4.4,
// page-sourcing step 3). Swap is itself the CAS-linked "take all"
// operation: any concurrent pusher either lands before or after the
// swap, never in between.
func (h *Heap) adoptThreadFreePages(pt PageType) bool {
	head := h.threadFreePages[pt].Swap(nil)
	if head == nil {
		return false
	}
	for head != nil {
		next := head.tfpNext
		head.tfpNext = nil
		h.pushFreePage(head)
		head = next
	}
	return true
}

// reinitPage recycles a page pulled off the free-page list for a new
// (possibly different) size class, recomputing its geometry exactly as
// spanAllocatePage does for a brand new slot.
func (h *Heap) reinitPage(p *Page, class int) {
	s := p.span
	info := sizeClasses[class]
	idx := s.pageIndexOf(uintptr(unsafe.Pointer(p)))
	headerSize := pageHeaderSize
	if idx == 0 {
		headerSize = spanHeaderSize
	}
	pageBase := uintptr(unsafe.Pointer(p))
	blocksStart := roundUp(pageBase+headerSize, minAlign)
	avail := uintptr(s.pageSize) - (blocksStart - pageBase)
	*p = Page{
		span:        s,
		heap:        h,
		sizeClass:   int32(class),
		pageType:    s.pageType,
		blockSize:   info.blockSize,
		blockCount:  uint32(avail / uintptr(info.blockSize)),
		blocksStart: blocksStart,
	}
}

// --- per-page-type partial-span list -----------------------------------

func (h *Heap) pushSpanPartial(s *Span) {
	s.prev = nil
	s.next = h.spanPartial[s.pageType]
	if s.next != nil {
		s.next.prev = s
	}
	h.spanPartial[s.pageType] = s
}

func (h *Heap) removeSpanPartial(s *Span) {
	if s.prev != nil {
		s.prev.next = s.next
	} else {
		h.spanPartial[s.pageType] = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	}
	s.prev, s.next = nil, nil
}

func (h *Heap) mapSpan(pt PageType) (*Span, error) {
	base, mappedSize, offset, err := currentMapper().mmap(SpanSize, SpanSize)
	if err != nil {
		return nil, err
	}
	s := (*Span)(unsafe.Pointer(base))
	*s = Span{}
	s.pageType = pt
	s.pageSize = pageSizeForType(pt)
	s.totalPages = SpanSize / s.pageSize
	s.mappedBase = base
	s.mappedSize = mappedSize
	s.mappedOffset = offset
	s.allNext = h.allSpans[pt]
	h.allSpans[pt] = s
	return s, nil
}

// unmapAllSpans releases every span this heap ever mapped, regardless of
// its current list membership. Only Finalize calls this, since it is the
// one place the spec allows tearing down a heap's mappings outright
// rather than recycling them through the free-page/orphan paths.
func (h *Heap) unmapAllSpans() {
	for pt := range h.allSpans {
		for s := h.allSpans[pt]; s != nil; {
			next := s.allNext // s is unreadable once unmapped
			_ = currentMapper().munmap(s.mappedBase, s.mappedSize, s.mappedOffset, true)
			s = next
		}
		h.allSpans[pt] = nil
	}
}

func (h *Heap) acquireSpanWithSlot(pt PageType) (*Span, error) {
	if s := h.spanPartial[pt]; s != nil {
		return s, nil
	}
	s, err := h.mapSpan(pt)
	if err != nil {
		return nil, err
	}
	h.pushSpanPartial(s)
	return s, nil
}

// acquirePageForClass implements spec §4.4's page-sourcing order: partial
// list, then free-page list, then thread-free-page list, then carving a
// fresh page from a partially used span, then mapping a brand new span.
func (h *Heap) acquirePageForClass(class int) (*Page, error) {
	if p := h.partial[class]; p != nil {
		return p, nil
	}
	pt := sizeClasses[class].pageType
	if p := h.popFreePage(pt); p != nil {
		h.reinitPage(p, class)
		h.pushPartial(p)
		return p, nil
	}
	if h.adoptThreadFreePages(pt) {
		if p := h.popFreePage(pt); p != nil {
			h.reinitPage(p, class)
			h.pushPartial(p)
			return p, nil
		}
	}
	span, err := h.acquireSpanWithSlot(pt)
	if err != nil {
		return nil, err
	}
	p := spanAllocatePage(span, class)
	p.heap = h
	h.pushPartial(p)
	if span.initPages == span.totalPages {
		h.removeSpanPartial(span)
	}
	return p, nil
}

func (h *Heap) onPageFull(p *Page) {
	h.removePartial(p)
}

// onPageFreed retires an emptied page back to the free-page list,
// optionally decommitting its body first (spec §9's decommit heuristic:
// only worth the syscall once at least half the page's blocks had ever
// been touched).
func (h *Heap) onPageFreed(p *Page) {
	if p.blockCount > 0 && float64(p.blockInit) >= float64(p.blockCount)*decommitThreshold() {
		decommitPageBody(p)
	}
	h.pushFreePage(p)
}

func decommitPageBody(p *Page) {
	bodyStart := p.blocksStart
	bodyEnd := bodyStart + uintptr(p.blockCount)*uintptr(p.blockSize)
	decommitFrom := roundUp(bodyStart, osPageSize) + osPageSize
	if decommitFrom >= bodyEnd {
		return
	}
	_ = currentMapper().munmap(decommitFrom, bodyEnd-decommitFrom, 0, false)
}

// --- allocation ---------------------------------------------------------

func (h *Heap) allocate(size uintptr, zero bool) (unsafe.Pointer, error) {
	class, ok := classForSize(size)
	if !ok {
		return h.allocateHuge(size, zero)
	}
	if head := h.fastFree[class]; head != 0 {
		h.fastFree[class] = readNextAddr(head)
		if zero {
			memclr(head, uintptr(sizeClasses[class].blockSize))
		}
		return unsafe.Pointer(head), nil
	}
	p, err := h.acquirePageForClass(class)
	if err != nil {
		return nil, err
	}
	addr, becameFull, ok := p.allocateBlock(zero)
	if !ok {
		fatal("allocate: freshly acquired page reports full")
	}
	if becameFull {
		h.onPageFull(p)
	}
	return unsafe.Pointer(addr), nil
}

// allocateAligned implements spec §4.4's alignment strategy: alignments
// at or below minAlign are free (every block is already that aligned);
// alignments up to mediumSizeMax over-allocate within the ordinary class
// table and advance the returned pointer; alignments above that, up to
// half a span, map a dedicated span, matching a huge allocation's path;
// anything larger is rejected with ErrInvalidArgument.
func (h *Heap) allocateAligned(alignment, size uintptr, zero bool) (unsafe.Pointer, error) {
	if alignment <= 1 {
		return h.allocate(size, zero)
	}
	if alignment&(alignment-1) != 0 {
		return nil, ErrInvalidArgument
	}
	if alignment <= minAlign {
		return h.allocate(size, zero)
	}
	if alignment > SpanSize/2 {
		return nil, ErrInvalidArgument
	}
	if alignment > mediumSizeMax {
		return h.allocateAlignedHuge(alignment, size, zero)
	}

	overSize := size + alignment
	rawPtr, err := h.allocate(overSize, false)
	if err != nil {
		return nil, err
	}
	raw := uintptr(rawPtr)
	_, page := pageOf(raw)
	page.flags |= pageFlagHasAligned
	aligned := roundUp(raw, alignment)
	if zero {
		memclr(aligned, size)
	}
	return unsafe.Pointer(aligned), nil
}

func (h *Heap) allocateHuge(size uintptr, zero bool) (unsafe.Pointer, error) {
	total := roundUp(spanHeaderSize+size, SpanSize)
	base, mappedSize, offset, err := currentMapper().mmap(total, SpanSize)
	if err != nil {
		return nil, err
	}
	s := (*Span)(unsafe.Pointer(base))
	*s = Span{}
	s.flags = spanFlagHuge
	s.pageType = PageLarge
	s.pageSize = uint32(total)
	s.totalPages = 1
	s.initPages = 1
	s.mappedBase = base
	s.mappedSize = mappedSize
	s.mappedOffset = offset
	addr := roundUp(base+spanHeaderSize, minAlign)
	if zero {
		memclr(addr, size)
	}
	return unsafe.Pointer(addr), nil
}

func (h *Heap) allocateAlignedHuge(alignment, size uintptr, zero bool) (unsafe.Pointer, error) {
	total := roundUp(size+alignment+spanHeaderSize, SpanSize)
	// Map at SpanSize alignment, not the requested alignment: the
	// smaller alignments this path ever sees (<= SpanSize/2) are already
	// satisfied by a SpanSize-aligned base, and spanOf's ptr &^
	// (SpanSize-1) recovery on free requires that the span header
	// actually sit on a SpanSize boundary, same as allocateHuge.
	base, mappedSize, offset, err := currentMapper().mmap(total, SpanSize)
	if err != nil {
		return nil, err
	}
	s := (*Span)(unsafe.Pointer(base))
	*s = Span{}
	s.flags = spanFlagHuge
	s.pageType = PageLarge
	s.pageSize = uint32(total)
	s.totalPages = 1
	s.initPages = 1
	s.mappedBase = base
	s.mappedSize = mappedSize
	s.mappedOffset = offset
	addr := roundUp(base+spanHeaderSize, alignment)
	if zero {
		memclr(addr, size)
	}
	return unsafe.Pointer(addr), nil
}

func deallocateHuge(s *Span) {
	_ = currentMapper().munmap(s.mappedBase, s.mappedSize, s.mappedOffset, true)
}

// --- deallocation ---------------------------------------------------------

// Deallocate returns a block to its owning page. It determines whether
// the calling goroutine owns the page's heap (the owner-thread path of
// spec §4.2) or must go through the cross-thread deferred-free path.
func Deallocate(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	addr := uintptr(ptr)
	span, page := pageOf(addr)
	if span.flags&spanFlagHuge != 0 {
		deallocateHuge(span)
		return
	}

	h := page.heap
	owner := h != nil && h.owner.Load() == currentThreadID()
	becameFree, wasFull, handoff := page.deallocateBlock(addr, owner)

	if owner {
		if wasFull {
			page.flags &^= pageFlagFull
		} else if becameFree {
			// The page is on the size-class partial list (pushed there
			// either by acquirePageForClass or by a previous free that
			// reopened it); it must be unlinked before moving to the
			// free-page list, which reuses prev/next for different
			// linkage (spec §4.2's block-return order: unlink, mark
			// free, link onto the free-page list).
			h.removePartial(page)
		}
		if becameFree {
			h.onPageFreed(page)
		} else if wasFull {
			h.pushPartial(page)
		} else if page.pageType == PageSmall {
			h.promoteFastList(page)
			if page.blockUsed == page.blockCount {
				page.flags = (page.flags &^ (pageFlagAvailable | pageFlagZero)) | pageFlagFull
				h.onPageFull(page)
			}
		}
		return
	}
	if handoff {
		// Every block is now parked on the thread-free list; the page's
		// owner-private counters are stale until the owning thread
		// recycles it via reinitPage, which overwrites them wholesale.
		h.pushThreadFreePage(page.pageType, page)
	}
}

// --- reallocation ---------------------------------------------------------

// ReallocFlags controls Reallocate/ReallocateAligned behavior (spec §4.4).
type ReallocFlags uint32

const (
	// ReallocNoPreserve skips copying the old block's contents.
	ReallocNoPreserve ReallocFlags = 1 << iota
	// ReallocGrowOrFail fails instead of moving the block when growing in
	// place isn't possible.
	ReallocGrowOrFail
)

func usableSizeOf(span *Span, page *Page, addr uintptr) uintptr {
	if span.flags&spanFlagHuge != 0 {
		return span.mappedSize - span.mappedOffset - (addr - span.mappedBase)
	}
	trueStart := page.canonicalize(addr)
	return uintptr(page.blockSize) - (addr - trueStart)
}

func copyMem(dst, src, size uintptr) {
	d := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size)
	s := unsafe.Slice((*byte)(unsafe.Pointer(src)), size)
	copy(d, s)
}

func (h *Heap) reallocate(ptr unsafe.Pointer, size uintptr, flags ReallocFlags) (unsafe.Pointer, error) {
	if ptr == nil {
		return h.allocate(size, false)
	}
	if size == 0 {
		Deallocate(ptr)
		return nil, nil
	}
	addr := uintptr(ptr)
	span, page := pageOf(addr)
	oldUsable := usableSizeOf(span, page, addr)
	if size <= oldUsable {
		return ptr, nil
	}
	if flags&ReallocGrowOrFail != 0 {
		return nil, nil
	}
	newPtr, err := h.allocate(size, false)
	if err != nil {
		return nil, err
	}
	if flags&ReallocNoPreserve == 0 {
		copySize := oldUsable
		if size < copySize {
			copySize = size
		}
		copyMem(uintptr(newPtr), addr, copySize)
	}
	Deallocate(ptr)
	return newPtr, nil
}

func (h *Heap) reallocateAligned(ptr unsafe.Pointer, alignment, size uintptr, flags ReallocFlags) (unsafe.Pointer, error) {
	if ptr == nil {
		return h.allocateAligned(alignment, size, false)
	}
	if size == 0 {
		Deallocate(ptr)
		return nil, nil
	}
	addr := uintptr(ptr)
	span, page := pageOf(addr)
	oldUsable := usableSizeOf(span, page, addr)
	if size <= oldUsable && addr%alignment == 0 {
		return ptr, nil
	}
	if flags&ReallocGrowOrFail != 0 {
		return nil, nil
	}
	newPtr, err := h.allocateAligned(alignment, size, false)
	if err != nil {
		return nil, err
	}
	if flags&ReallocNoPreserve == 0 {
		copySize := oldUsable
		if size < copySize {
			copySize = size
		}
		copyMem(uintptr(newPtr), addr, copySize)
	}
	Deallocate(ptr)
	return newPtr, nil
}

// UsableSize reports the full capacity of the block ptr addresses (spec
// §4.4 / invariant "usable_size(p) >= requested_size(p)").
func UsableSize(ptr unsafe.Pointer) uintptr {
	if ptr == nil {
		return 0
	}
	addr := uintptr(ptr)
	span, page := pageOf(addr)
	return usableSizeOf(span, page, addr)
}
