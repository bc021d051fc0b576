// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "unsafe"

// spanFlag bits, stored on the embedded page-0 header.
const (
	spanFlagHuge uint32 = 1 << iota
)

// Span is the OS-level unit spec §3 describes: a contiguous, naturally
// aligned address range subdivided into pages of one page type. Its
// struct is placed directly at the base of the mapped memory it
// describes (spec's "span_base = ptr &^ (SpanSize-1) is a valid span
// header"), the same off-heap-struct-at-address idiom the teacher's
// mheap/mspan pairing uses for its own page-granular metadata, and the
// one github.com/cznic/memory's Allocator uses for its page headers.
//
// Span embeds Page: the first page of a span (index 0) reuses the span's
// own header memory rather than carrying a separate Page record, exactly
// as spec §3 specifies ("an embedded page header").
type Span struct {
	Page

	pageType   PageType
	pageSize   uint32
	totalPages uint32
	initPages  uint32
	flags      uint32

	mappedBase   uintptr
	mappedSize   uintptr
	mappedOffset uintptr

	// heap-owned doubly linked list membership (partial-span list per
	// page type); a fully initialized span is on no such list.
	prev, next *Span

	// allNext singly-links every span a heap has ever mapped for a given
	// page type, independent of prev/next's partial-list membership, so
	// Finalize can still find and unmap a span after it has been carved
	// to completion and dropped off the partial list.
	allNext *Span
}

// spanOf recovers a block's span header by masking the pointer to the
// span's natural alignment (spec §3 invariant, §6 "bit-exact contracts").
func spanOf(ptr uintptr) *Span {
	base := ptr &^ uintptr(spanSizeMask)
	return (*Span)(unsafe.Pointer(base))
}

func (s *Span) base() uintptr { return uintptr(unsafe.Pointer(s)) }

// pageAt returns the Page header for page index i within the span. Index
// 0 is the span's own embedded header; any other index's header lives at
// the start of that page's own bytes (spec §3: "a page's address is
// derivable from any block address by masking... plus page-size
// arithmetic").
func (s *Span) pageAt(i uint32) *Page {
	if i == 0 {
		return &s.Page
	}
	addr := s.base() + uintptr(i)*uintptr(s.pageSize)
	return (*Page)(unsafe.Pointer(addr))
}

// pageIndexOf returns the index within the span of the page containing ptr.
func (s *Span) pageIndexOf(ptr uintptr) uint32 {
	return uint32((ptr - s.base()) / uintptr(s.pageSize))
}

// pageOf is the full pointer -> page lookup spec §2 describes for
// deallocate: "bitmask ptr to span -> offset to page".
func pageOf(ptr uintptr) (*Span, *Page) {
	s := spanOf(ptr)
	return s, s.pageAt(s.pageIndexOf(ptr))
}

// spanHeaderSize is the space page 0 loses to the span's own struct; it
// is reserved entirely for metadata (see spanAllocatePage) rather than
// prorating every page's header cost, which keeps blocksPerPage uniform
// across every page of a span (an explicit simplification — see
// DESIGN.md's Open Question on span layout).
var spanHeaderSize = roundUp(unsafe.Sizeof(Span{}), minAlign)

// pageHeaderSize is the space any non-zero page index loses to its own
// embedded Page header.
var pageHeaderSize = roundUp(unsafe.Sizeof(Page{}), minAlign)

func roundUp(n uintptr, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// spanAllocatePage carves the next uninitialized page slot from span and
// initializes it for sizeClass (spec §4.3). When the span's initialized
// page count reaches its total, the caller removes the span from the
// heap's partial-span list (it stays reachable through allNext).
func spanAllocatePage(s *Span, class int) *Page {
	if s.initPages >= s.totalPages {
		fatal("spanAllocatePage: span exhausted")
	}
	idx := s.initPages
	// Page 0 of a multi-page span is reserved for the span header and
	// never carries blocks; skip straight to index 1 the first time a
	// multi-page span is touched.
	if idx == 0 && s.totalPages > 1 {
		idx = 1
		s.initPages = 1
	}
	s.initPages++

	p := s.pageAt(idx)
	info := sizeClasses[class]
	headerSize := pageHeaderSize
	if idx == 0 {
		headerSize = spanHeaderSize
	}
	pageBase := s.base() + uintptr(idx)*uintptr(s.pageSize)
	blocksStart := roundUp(pageBase+headerSize, minAlign)
	avail := uintptr(s.pageSize) - (blocksStart - pageBase)
	blockCount := uint32(avail / uintptr(info.blockSize))

	*p = Page{
		span:        s,
		sizeClass:   int32(class),
		blockSize:   info.blockSize,
		blockCount:  blockCount,
		blocksStart: blocksStart,
		pageType:    s.pageType,
	}
	return p
}
