// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "sync"

// heapIDCounter hands out the monotonic heap identifiers spec §4.5
// mentions, stored in each Heap's id field. Neither Snapshot nor the
// rpstats profile reports them.
var heapIDCounter uint64

func nextHeapID() uint64 {
	heapIDCounterMu.Lock()
	heapIDCounter++
	id := heapIDCounter
	heapIDCounterMu.Unlock()
	return id
}

var heapIDCounterMu sync.Mutex

var (
	heapRegistryMu sync.Mutex
	heapRegistry   = map[uint64]*Heap{} // owning-thread-id -> heap

	orphanMu   sync.Mutex
	orphanHead *Heap
)

// acquireHeapForThread returns the calling thread's heap, creating one
// the first time a thread calls in (spec §4.5: "the first allocation on
// a new thread lazily creates its heap"). An orphaned heap — one whose
// previous owner called ThreadFinalize — is reused in preference to
// mapping fresh spans, so a pool of short-lived goroutines recycles a
// bounded number of heaps instead of leaking one per goroutine.
func acquireHeapForThread() *Heap {
	tid := currentThreadID()

	heapRegistryMu.Lock()
	if h, ok := heapRegistry[tid]; ok {
		heapRegistryMu.Unlock()
		return h
	}
	heapRegistryMu.Unlock()

	h := claimOrphan()
	if h == nil {
		h = newHeap(nextHeapID())
	}
	h.owner.Store(tid)

	heapRegistryMu.Lock()
	heapRegistry[tid] = h
	heapRegistryMu.Unlock()
	return h
}

func lookupHeapForThread() (*Heap, bool) {
	tid := currentThreadID()
	heapRegistryMu.Lock()
	h, ok := heapRegistry[tid]
	heapRegistryMu.Unlock()
	return h, ok
}

// releaseHeapForThread implements ThreadFinalize: it unregisters the
// calling thread's heap and queues it for reuse by the next thread that
// needs one, rather than tearing it down (spec §4.5's orphan queue).
func releaseHeapForThread() {
	tid := currentThreadID()

	heapRegistryMu.Lock()
	h, ok := heapRegistry[tid]
	if ok {
		delete(heapRegistry, tid)
	}
	heapRegistryMu.Unlock()
	if !ok {
		return
	}

	h.owner.Store(0)
	orphanHeap(h)
}

func claimOrphan() *Heap {
	orphanMu.Lock()
	defer orphanMu.Unlock()
	if orphanHead == nil {
		return nil
	}
	h := orphanHead
	orphanHead = h.orphanNext
	h.orphanNext = nil
	return h
}

func orphanHeap(h *Heap) {
	orphanMu.Lock()
	h.orphanNext = orphanHead
	orphanHead = h
	orphanMu.Unlock()
}

// Finalize releases globally owned bookkeeping (spec §6) and unmaps every
// span any still-registered or orphaned heap holds, so that a
// process-wide finalize leaves zero outstanding OS mappings (spec §8,
// scenario S6) rather than relying on process exit to reclaim them.
// Further allocation calls after Finalize are undefined, exactly as spec
// §6 states.
func Finalize() {
	heapRegistryMu.Lock()
	heaps := make([]*Heap, 0, len(heapRegistry))
	for _, h := range heapRegistry {
		heaps = append(heaps, h)
	}
	heapRegistry = map[uint64]*Heap{}
	heapRegistryMu.Unlock()

	orphanMu.Lock()
	for h := orphanHead; h != nil; h = h.orphanNext {
		heaps = append(heaps, h)
	}
	orphanHead = nil
	orphanMu.Unlock()

	for _, h := range heaps {
		h.unmapAllSpans()
	}
}
