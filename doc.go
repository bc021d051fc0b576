// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpmalloc is a thread-caching, span-based memory allocator meant
// to sit underneath a process the way malloc/free sit underneath a C
// program: it is not a general-purpose Go value allocator (the garbage
// collector already owns that job) but a manually-managed heap for callers
// that want malloc-shaped lifetime control — FFI buffers, arenas, or
// off-heap caches.
//
// The allocator's data structures are:
//
//	Span: a naturally aligned, OS-mapped address range, fixed size,
//		subdivided into pages of one page type.
//	Page: a fixed-size region of a span carved into blocks of one size
//		class, with its own local and thread-shared free lists.
//	Heap: a per-thread collection of pages and spans, indexed by size
//		class, plus the fast single-block free lists used on the hot path.
//
// Allocating a small block proceeds up a hierarchy of caches:
//
//	1. Round the size up to a size class and look in the heap's fast
//	   free list for that class. This needs no atomics.
//	2. If empty, find or allocate a page for the class (heap's partial
//	   list, its free-page cache, its thread-free-page list, a span with
//	   an uninitialized page slot, or a fresh OS mapping) and refill from it.
//	3. Large requests skip size classes and map a dedicated span per
//	   allocation ("huge"); freeing one unmaps the span directly.
//
// Freeing a block walks back down: the owning heap is recovered by masking
// the pointer to its span (span = ptr &^ (SpanSize-1)) and dividing the
// offset by the span's page size. A free performed by the page's owning
// thread touches only that thread's memory; a free from any other thread
// is published through a single packed atomic per page (see page.go) so
// the owner can reclaim it without ever taking a lock.
package rpmalloc
