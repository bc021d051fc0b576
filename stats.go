// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

// ClassStats summarizes one size class's live occupancy across every
// heap currently registered in the process (spec's explicit non-goal:
// "precise usage statistics as a correctness feature" — this is
// diagnostic only; nothing in the allocator itself consults it).
type ClassStats struct {
	BlockSize  uint32
	PageType   PageType
	PagesLive  int
	BlocksUsed int
	BlocksFree int
}

// Snapshot walks every registered heap's size-class partial-page lists
// and reports per-class occupancy. It is a best-effort, point-in-time
// view — it takes the heap registry's own mutex only long enough to copy
// the list of heaps, then reads each heap's lists without further
// synchronization, the same "approximate, not transactional" posture
// spec §1's non-goals license for usage statistics. Grounded on
// runtime/mstats.go's ReadMemStats, which makes the identical tradeoff
// for the garbage-collected heap (a world-stop is the only way to make it
// exact, and this allocator has no equivalent stop-the-world hook).
func Snapshot() []ClassStats {
	stats := make([]ClassStats, len(sizeClasses))
	for i, c := range sizeClasses {
		stats[i].BlockSize = c.blockSize
		stats[i].PageType = c.pageType
	}

	heapRegistryMu.Lock()
	heaps := make([]*Heap, 0, len(heapRegistry))
	for _, h := range heapRegistry {
		heaps = append(heaps, h)
	}
	heapRegistryMu.Unlock()

	for _, h := range heaps {
		for class, head := range h.partial {
			for p := head; p != nil; p = p.next {
				stats[class].PagesLive++
				stats[class].BlocksUsed += int(p.blockUsed)
				stats[class].BlocksFree += int(p.blockCount - p.blockUsed)
			}
		}
	}
	return stats
}
