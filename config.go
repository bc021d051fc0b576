// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import (
	"sync"
	"sync/atomic"
)

// Config configures the package-level allocator before first use (spec
// §6). Every field is optional; the zero Config reproduces the default
// behavior an unconfigured program gets from its first allocation.
type Config struct {
	// EnableHugePages asks the OS mapping layer to back spans with huge
	// pages when the platform supports it (spec §4.1); silently ignored
	// where it doesn't.
	EnableHugePages bool

	// MapFailCallback is consulted when the underlying mmap/VirtualAlloc
	// call fails; returning true requests exactly one retry (spec §6).
	MapFailCallback MapFailCallback

	// Mapper overrides the OS mapping primitive entirely (spec §6,
	// "memory_map / memory_unmap overrides") — mainly for tests that want
	// a fake, deterministic address space.
	Mapper osMapper

	// DecommitThreshold is the fraction of a page's blocks that must have
	// been touched at least once before an emptied page's body is handed
	// back to the OS via decommit (spec §9). Zero means use the default.
	// See SPEC_FULL.md §C.3 for why 0.5 was chosen.
	DecommitThreshold float64

	// EnableDebugValidation turns on poison-fill/canary-check write-after-
	// free detection (debugpoison.go). Costs a blake2b hash per freed
	// block and per block reused from a page's free lists; off by default.
	EnableDebugValidation bool
}

var (
	initOnce sync.Once
	initDone atomic.Bool

	activeMapper            osMapper
	globalDecommitThreshold float64 = 0.5
)

// Init configures the allocator. Calling it more than once is a no-op;
// the first call (explicit or implied by the first allocation) wins,
// matching spec §6's "configuration is fixed for the process's
// lifetime" invariant.
func Init(cfg Config) {
	initOnce.Do(func() {
		if cfg.Mapper != nil {
			activeMapper = cfg.Mapper
		} else {
			activeMapper = newDefaultMapper(cfg.EnableHugePages, cfg.MapFailCallback)
		}
		if cfg.DecommitThreshold > 0 {
			globalDecommitThreshold = cfg.DecommitThreshold
		}
		debugValidation = cfg.EnableDebugValidation
		initDone.Store(true)
	})
}

// IsInitialized reports whether Init has run, explicitly or implicitly.
func IsInitialized() bool {
	return initDone.Load()
}

func currentMapper() osMapper {
	if !initDone.Load() {
		Init(Config{})
	}
	return activeMapper
}

func decommitThreshold() float64 {
	return globalDecommitThreshold
}
