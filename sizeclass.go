// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "math/bits"

// PageType selects the fixed page size used to back a size class, per
// spec §3 ("Page type is determined by class index"). Huge allocations
// bypass pages and size classes entirely.
type PageType uint8

const (
	PageSmall PageType = iota
	PageMedium
	PageLarge
	numPageTypes
)

func (t PageType) String() string {
	switch t {
	case PageSmall:
		return "small"
	case PageMedium:
		return "medium"
	case PageLarge:
		return "large"
	default:
		return "unknown"
	}
}

const (
	// minAlignShift/minAlign is the small-granularity constant: every
	// returned pointer is at least this aligned (spec §6, "bit-exact
	// contracts").
	minAlignShift = 4
	minAlign      = 1 << minAlignShift // 16

	// SpanSize is the fixed, naturally aligned unit the OS mapping layer
	// deals in (spec §2). The source material names both a 64KiB and a
	// 256MiB variant (spec §9); 64KiB is chosen here — see SPEC_FULL.md §C.1.
	SpanSize     = 64 * 1024
	spanSizeMask = SpanSize - 1

	// Page sizes per page type. Each must divide SpanSize.
	smallPageSize  = 8 * 1024
	mediumPageSize = 32 * 1024
	largePageSize  = SpanSize

	// Size-class boundaries. Requests above largeSizeMax bypass the
	// class table entirely and become "huge" (spec §4.4, "Huge
	// allocations").
	smallSizeMax  = 2048
	mediumSizeMax = 16 * 1024
	largeSizeMax  = 32 * 1024
)

func pageSizeForType(t PageType) uint32 {
	switch t {
	case PageSmall:
		return smallPageSize
	case PageMedium:
		return mediumPageSize
	case PageLarge:
		return largePageSize
	default:
		fatal("pageSizeForType: bad page type")
		return 0
	}
}

// sizeClassInfo is one row of the immutable size-class table (spec §3,
// "Size classes"): a precomputed (block size, blocks per page) pair.
type sizeClassInfo struct {
	blockSize     uint32
	pageType      PageType
	blocksPerPage uint32
}

// sizeClasses is built once at package init by computeSizeClasses and is
// read-only thereafter, matching spec §4.5 ("the size-class table
// (immutable after init)"). Its concrete values are also emitted, in
// generated form, by cmd/gensizeclass into sizeclass_table.go; both paths
// must agree, which sizeclass_table_test.go enforces.
var sizeClasses = computeSizeClasses()

// blockCountForSize rounds size up to a count of minAlign-sized blocks,
// per spec §4.4's size-class dispatch rule. size==0 is treated as 1 (spec
// §8: "allocate(0) returns ... a valid minimum-size block").
func blockCountForSize(size uintptr) uint32 {
	if size == 0 {
		size = 1
	}
	return uint32((size + minAlign - 1) / minAlign)
}

// classIndexForBlocks implements spec §4.4's two-rule size-class index:
// for up to eight minAlign-blocks the index is the block count itself;
// above that it's derived from the position of the most significant bit
// of (blocks-1) plus two sub-class bits, i.e. four sub-classes per
// power-of-two octave.
func classIndexForBlocks(blocks uint32) int {
	if blocks <= 8 {
		return int(blocks) - 1
	}
	n := blocks - 1
	e := bits.Len32(n) // n >= 8 here, so e >= 4
	sub := (n >> uint(e-3)) & 3
	base := 8 + (e-4)*4
	return base + int(sub)
}

// blockSizeForClassIndex returns the largest block size that
// classIndexForBlocks maps to idx, so every request routed to that class
// fits in its blocks. Used only while building the table.
func blockSizeForClassIndex(idx int) uint32 {
	var blocks uint32
	if idx < 8 {
		blocks = uint32(idx) + 1
	} else {
		rel := idx - 8
		e := 4 + rel/4
		sub := uint32(rel % 4)
		n := (uint32(1) << uint(e-1)) | (sub << uint(e-3)) | (uint32(1)<<uint(e-3) - 1)
		blocks = n + 1
	}
	return blocks * minAlign
}

func pageTypeForBlockSize(sz uint32) PageType {
	switch {
	case sz <= smallSizeMax:
		return PageSmall
	case sz <= mediumSizeMax:
		return PageMedium
	default:
		return PageLarge
	}
}

func computeSizeClasses() []sizeClassInfo {
	var classes []sizeClassInfo
	for idx := 0; ; idx++ {
		blockSize := blockSizeForClassIndex(idx)
		if blockSize > largeSizeMax {
			break
		}
		pt := pageTypeForBlockSize(blockSize)
		classes = append(classes, sizeClassInfo{
			blockSize:     blockSize,
			pageType:      pt,
			blocksPerPage: pageSizeForType(pt) / blockSize,
		})
	}
	return classes
}

// classForSize returns the smallest size class whose block size is at
// least size, or ok==false if size exceeds the largest class (the caller
// must then take the huge-allocation path).
func classForSize(size uintptr) (class int, ok bool) {
	if size > largeSizeMax {
		return 0, false
	}
	blocks := blockCountForSize(size)
	idx := classIndexForBlocks(blocks)
	if idx >= len(sizeClasses) {
		return 0, false
	}
	return idx, true
}

// numClasses is the total number of size classes in the table. The heap's
// per-class lists (fast free list, partial-page list) are sized to this.
var numClasses = len(sizeClasses)
