// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "testing"

// TestScenarioSmallRoundTrip is scenario S1 from spec §8.
func TestScenarioSmallRoundTrip(t *testing.T) {
	ThreadInit()
	defer ThreadFinalize()

	p, err := Allocate(16)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got := UsableSize(p); got != 16 {
		t.Fatalf("usable size = %d, want 16", got)
	}
	Deallocate(p)
}

// TestScenarioClassBoundary is scenario S2 from spec §8.
func TestScenarioClassBoundary(t *testing.T) {
	ThreadInit()
	defer ThreadFinalize()

	for size := uintptr(0); size <= 1024; size++ {
		p, err := Allocate(size)
		if err != nil {
			t.Fatalf("allocate(%d): %v", size, err)
		}
		want := size
		if want == 0 {
			want = 1
		}
		want = (want + minAlign - 1) &^ (minAlign - 1)
		if got := UsableSize(p); got != want {
			t.Fatalf("allocate(%d): usable size = %d, want %d", size, got, want)
		}
		Deallocate(p)
	}
}

// TestScenarioAlignedGrowth is scenario S3 from spec §8.
func TestScenarioAlignedGrowth(t *testing.T) {
	ThreadInit()
	defer ThreadFinalize()

	p, err := AllocateAligned(128, 64)
	if err != nil {
		t.Fatalf("allocateAligned: %v", err)
	}
	*(*uint32)(p) = 0x12345678

	p2, err := ReallocateAligned(p, 128, 96, 0)
	if err != nil {
		t.Fatalf("reallocateAligned: %v", err)
	}
	if got := *(*uint32)(p2); got != 0x12345678 {
		t.Fatalf("data not preserved across aligned reallocate, got %x", got)
	}
	Deallocate(p2)
}

func TestAllocateZeroedOverflowIsRejected(t *testing.T) {
	const huge = ^uintptr(0)/2 + 1
	if _, err := AllocateZeroed(huge, 2); err != ErrInvalidArgument {
		t.Fatalf("expected overflowing product to be rejected, got %v", err)
	}
}

func TestAllocateZeroedZerosMemory(t *testing.T) {
	ThreadInit()
	defer ThreadFinalize()

	p, err := AllocateZeroed(8, 8)
	if err != nil {
		t.Fatalf("allocateZeroed: %v", err)
	}
	buf := (*[64]byte)(p)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, b)
		}
	}
	Deallocate(p)
}

func TestDeallocateNilIsNoop(t *testing.T) {
	Deallocate(nil)
}

func TestReallocateNilBehavesAsAllocate(t *testing.T) {
	ThreadInit()
	defer ThreadFinalize()

	p, err := Reallocate(nil, 32, 0)
	if err != nil {
		t.Fatalf("reallocate(nil, ...): %v", err)
	}
	if p == nil {
		t.Fatal("reallocate(nil, n) returned nil")
	}
	Deallocate(p)
}

func TestReallocateZeroBehavesAsDeallocate(t *testing.T) {
	ThreadInit()
	defer ThreadFinalize()

	p, err := Allocate(32)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	again, err := Reallocate(p, 0, 0)
	if err != nil {
		t.Fatalf("reallocate(p, 0): %v", err)
	}
	if again != nil {
		t.Fatal("reallocate(p, 0) should return nil")
	}
}

func TestHugeAllocationRoundTrip(t *testing.T) {
	ThreadInit()
	defer ThreadFinalize()

	const hugeSize = 12_345_678
	p, err := Allocate(hugeSize)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got := UsableSize(p); got < hugeSize {
		t.Fatalf("usable size %d < requested %d", got, hugeSize)
	}
	Deallocate(p)
}

func TestInitIsIdempotent(t *testing.T) {
	Init(Config{})
	Init(Config{EnableHugePages: true})
	if !IsInitialized() {
		t.Fatal("expected IsInitialized() after Init")
	}
}

func TestFinalizeClearsThreadRegistrations(t *testing.T) {
	ThreadInit()
	if !IsThreadInitialized() {
		t.Fatal("expected a heap after ThreadInit")
	}
	Finalize()
	if IsThreadInitialized() {
		t.Fatal("Finalize should clear heap registrations")
	}
}
