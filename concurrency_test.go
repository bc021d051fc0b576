// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import (
	"testing"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// TestCrossThreadDeferredFree is scenario S4 from spec §8: thread A
// allocates, thread B frees. The free must not corrupt A's heap and must
// eventually become visible to A without a double free or a leak.
func TestCrossThreadDeferredFree(t *testing.T) {
	ThreadInit()
	defer ThreadFinalize()

	const n = 64
	ptrs := make([]unsafe.Pointer, n)
	for i := range ptrs {
		p, err := Allocate(48)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		ptrs[i] = p
	}

	var g errgroup.Group
	g.Go(func() error {
		ThreadInit()
		defer ThreadFinalize()
		for _, p := range ptrs {
			Deallocate(p)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("cross-thread free: %v", err)
	}

	// A's next allocations of the same size must not alias any pointer
	// still conceptually live to this thread's bookkeeping; they are all
	// held live until the loop ends.
	seen := make(map[unsafe.Pointer]bool, n)
	for i := 0; i < n; i++ {
		p, err := Allocate(48)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		if seen[p] {
			t.Fatalf("allocate returned duplicate pointer %p", p)
		}
		seen[p] = true
	}
	for p := range seen {
		Deallocate(p)
	}
}

// TestThreadChurn is scenario S6 from spec §8.
func TestThreadChurn(t *testing.T) {
	const goroutines = 16
	const passes = 20
	const perPass = 50

	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			for pass := 0; pass < passes; pass++ {
				ThreadInit()
				ptrs := make([]unsafe.Pointer, 0, perPass)
				for j := 0; j < perPass; j++ {
					size := uintptr(16 + (j%37)*8)
					p, err := Allocate(size)
					if err != nil {
						return err
					}
					ptrs = append(ptrs, p)
				}
				for _, p := range ptrs {
					Deallocate(p)
				}
				ThreadFinalize()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("thread churn: %v", err)
	}
}
