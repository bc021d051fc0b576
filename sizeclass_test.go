// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "testing"

func TestSizeClassesStrictlyIncreasing(t *testing.T) {
	var prev uint32
	for i, c := range sizeClasses {
		if c.blockSize <= prev {
			t.Fatalf("class %d: blockSize %d did not increase from %d", i, c.blockSize, prev)
		}
		prev = c.blockSize
	}
}

func TestClassForSizeCoversRequest(t *testing.T) {
	sizes := []uintptr{1, 15, 16, 17, 2047, 2048, 2049, 16 * 1024, 16*1024 + 1, 32 * 1024}
	for _, size := range sizes {
		class, ok := classForSize(size)
		if !ok {
			t.Fatalf("size %d unexpectedly has no class", size)
		}
		if uintptr(sizeClasses[class].blockSize) < size {
			t.Fatalf("size %d got class with smaller blockSize %d", size, sizeClasses[class].blockSize)
		}
	}
}

func TestClassForSizeHugeBoundary(t *testing.T) {
	if _, ok := classForSize(largeSizeMax + 1); ok {
		t.Fatal("expected no size class beyond largeSizeMax")
	}
	if _, ok := classForSize(largeSizeMax); !ok {
		t.Fatal("expected a size class at exactly largeSizeMax")
	}
}

func TestBlockCountForSizeZeroRoundsToOne(t *testing.T) {
	if blockCountForSize(0) != 1 {
		t.Fatal("allocate(0) must round up to one minimum-granularity block")
	}
}

func TestClassIndexForBlocksInverse(t *testing.T) {
	for idx := range sizeClasses {
		blocks := blockSizeForClassIndex(idx) / minAlign
		if got := classIndexForBlocks(blocks); got != idx {
			t.Fatalf("classIndexForBlocks(%d) = %d, want %d", blocks, got, idx)
		}
	}
}

func TestPageTypeForBlockSizeMatchesTable(t *testing.T) {
	for i, c := range sizeClasses {
		want := pageTypeForBlockSize(c.blockSize)
		if c.pageType != want {
			t.Fatalf("class %d: table says %v, pageTypeForBlockSize says %v", i, c.pageType, want)
		}
	}
}
