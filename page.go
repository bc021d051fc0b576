// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// pageFlag bits (spec §3: "status flags {full, available, free,
// zero-initialized, contains-aligned-blocks}").
type pageFlag uint32

const (
	pageFlagFull pageFlag = 1 << iota
	pageFlagAvailable
	pageFlagFree
	pageFlagZero
	pageFlagHasAligned
)

// threadFreeLock is the spin-lock sentinel spec §4.2/§5 describes: an
// otherwise-unreachable token (blocks-per-page never gets close to
// 2^32-1) that a pusher or adopter CAS-swaps in to claim exclusive
// splice rights over the thread-free list.
const threadFreeLock = ^uint64(0)

// Page is a fixed-size region of a span carved into blocks of one size
// class (spec §3). Like Span, it is placed directly at the address it
// describes (see span.go's pageAt) so that a block pointer can recover
// its page by arithmetic alone.
type Page struct {
	span *Span // owning span (non-owning back-reference)
	heap *Heap // owning heap (non-owning back-reference)

	sizeClass   int32
	pageType    PageType
	blockSize   uint32
	blockCount  uint32
	blockInit   uint32 // blocks carved from raw page body so far
	blockUsed   uint32
	blocksStart uintptr

	localFree      uintptr // address-linked free list, owner-thread-private
	localFreeCount uint32

	// threadFree packs (blockIndex+1 of list head : 32, list length : 32).
	// A zero head means empty; threadFreeLock is the spin-lock sentinel.
	threadFree atomic.Uint64

	flags pageFlag

	// heap size-class/free-page list membership
	prev, next *Page
	// separate linkage for the heap's per-page-type thread-free-page
	// stack (spec §4.2, "hand the page off to the owning heap's
	// per-page-type thread-free-page list"); kept distinct from
	// prev/next because a page can be mid-splice on one list while
	// still logically linked on another during handoff.
	tfpNext *Page
}

func (p *Page) blockAddr(idx uint32) uintptr {
	return p.blocksStart + uintptr(idx)*uintptr(p.blockSize)
}

func (p *Page) blockIndex(addr uintptr) uint32 {
	return uint32((addr - p.blocksStart) / uintptr(p.blockSize))
}

func readNextAddr(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

func writeNextAddr(addr, next uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = next
}

func readNextIdx(addr uintptr) uint32 {
	return uint32(*(*uintptr)(unsafe.Pointer(addr)))
}

func writeNextIdx(addr uintptr, idx uint32) {
	*(*uintptr)(unsafe.Pointer(addr)) = uintptr(idx)
}

func packThreadFree(headPlus1, length uint32) uint64 {
	return uint64(headPlus1)<<32 | uint64(length)
}

func unpackThreadFree(tok uint64) (headPlus1, length uint32) {
	return uint32(tok >> 32), uint32(tok)
}

// pushThreadFree publishes one freed block from a non-owner thread (spec
// §4.2 "cross-thread path", §5 "ordering and atomics"). It returns true
// when this push made the thread-free list exactly block_count long,
// meaning the whole page has now been freed entirely by remote threads
// and must be handed off to the owning heap.
func (p *Page) pushThreadFree(addr uintptr) (handoff bool) {
	idx := p.blockIndex(addr)
	for {
		old := p.threadFree.Load()
		if old == threadFreeLock {
			runtime.Gosched()
			continue
		}
		if !p.threadFree.CompareAndSwap(old, threadFreeLock) {
			continue
		}
		oldHeadP1, oldLen := unpackThreadFree(old)
		writeNextIdx(addr, oldHeadP1)
		newLen := oldLen + 1
		p.threadFree.Store(packThreadFree(idx+1, newLen))
		return newLen == p.blockCount
	}
}

// adoptThreadFree splices the entire thread-free list into the local
// free list (spec §4.2, step 2: "CAS-swap its atomic token with a lock
// sentinel, splice the linked list into the local free list, CAS-store
// zero to release"). Must only be called by the page's owning thread.
func (p *Page) adoptThreadFree() bool {
	for {
		old := p.threadFree.Load()
		if old == threadFreeLock {
			runtime.Gosched()
			continue
		}
		if old == 0 {
			return false
		}
		if !p.threadFree.CompareAndSwap(old, threadFreeLock) {
			continue
		}
		headP1, length := unpackThreadFree(old)

		// Re-chain the idx-linked list as an address-linked list in a
		// single forward pass: each node's stored "next" is read before
		// it's overwritten with the real address of the node discovered
		// in the previous step.
		idx := headP1 - 1
		first := p.blockAddr(idx)
		prevAddr := uintptr(0)
		var count uint32
		for {
			addr := p.blockAddr(idx)
			nextP1 := readNextIdx(addr)
			if prevAddr != 0 {
				writeNextAddr(prevAddr, addr)
			}
			prevAddr = addr
			count++
			if nextP1 == 0 {
				break
			}
			idx = nextP1 - 1
		}
		last := prevAddr
		assert(count == length, "adoptThreadFree: length mismatch")

		writeNextAddr(last, p.localFree)
		p.localFree = first
		p.localFreeCount += count
		p.blockUsed -= count
		p.threadFree.Store(0)
		return true
	}
}

// canonicalize reverses the pointer advance aligned allocations carry
// (spec §4.2, "aligned-block bookkeeping"): it rounds ptr back down to
// the true start of its block.
func (p *Page) canonicalize(ptr uintptr) uintptr {
	if p.flags&pageFlagHasAligned == 0 {
		return ptr
	}
	off := (ptr - p.blocksStart) % uintptr(p.blockSize)
	return ptr - off
}

// initRun amortizes the hot path for small blocks smaller than half an OS
// page: instead of carving one block at a time off the raw page body, it
// carves a whole run up to the next OS-page boundary and stashes the
// remainder on the local free list (spec §4.2, step 3).
func (p *Page) initRun(zero bool) uintptr {
	first := p.blockAddr(p.blockInit)
	p.blockInit++

	if p.pageType == PageSmall && uintptr(p.blockSize) < osPageSize/2 {
		boundary := (first + osPageSize) &^ (osPageSize - 1)
		for p.blockInit < p.blockCount {
			addr := p.blockAddr(p.blockInit)
			if addr >= boundary {
				break
			}
			p.blockInit++
			writeNextAddr(addr, p.localFree)
			p.localFree = addr
			p.localFreeCount++
		}
	}

	p.onAllocated(first, zero)
	return first
}

func (p *Page) onAllocated(addr uintptr, zero bool) {
	if zero && p.flags&pageFlagZero == 0 {
		memclr(addr, uintptr(p.blockSize))
	}
	p.blockUsed++
}

func memclr(addr, size uintptr) {
	buf := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	for i := range buf {
		buf[i] = 0
	}
}

// allocateBlock returns one block from the page (spec §4.2 "block
// acquisition order"). ok is false only when the page is full.
func (p *Page) allocateBlock(zero bool) (addr uintptr, becameFull bool, ok bool) {
	if p.localFree != 0 {
		addr = p.localFree
		p.localFree = readNextAddr(addr)
		p.localFreeCount--
		poisonCheck(addr, p.blockSize)
		p.onAllocated(addr, zero)
	} else if p.adoptThreadFree() {
		addr = p.localFree
		p.localFree = readNextAddr(addr)
		p.localFreeCount--
		poisonCheck(addr, p.blockSize)
		p.onAllocated(addr, zero)
	} else if p.blockInit < p.blockCount {
		addr = p.initRun(zero)
	} else {
		return 0, false, false
	}

	// Promote the whole local free list to the heap's fast-path list for
	// this class once one block has been handed out (spec §4.2, step 4).
	if p.pageType == PageSmall && p.localFree != 0 && p.heap != nil {
		p.heap.promoteFastList(p)
	}

	if p.blockUsed == p.blockCount {
		p.flags = (p.flags &^ (pageFlagAvailable | pageFlagZero)) | pageFlagFull
		becameFull = true
	}
	return addr, becameFull, true
}

// deallocateBlock returns a block to the page (spec §4.2 "block return").
// ownedByCaller must be true iff the calling goroutine's heap owns this
// page; the caller (heap.go) is responsible for making that determination
// since it requires comparing thread identities.
func (p *Page) deallocateBlock(addr uintptr, ownedByCaller bool) (becameFree, wasFull, handoff bool) {
	addr = p.canonicalize(addr)
	wasFull = p.flags&pageFlagFull != 0
	if ownedByCaller {
		poisonFill(addr, p.blockSize)
		writeNextAddr(addr, p.localFree)
		p.localFree = addr
		p.localFreeCount++
		p.blockUsed--
		becameFree = p.blockUsed == 0
		return becameFree, wasFull, false
	}
	poisonFill(addr, p.blockSize)
	return false, wasFull, p.pushThreadFree(addr)
}
