// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// MapFailCallback is invoked when the OS mapping primitive cannot satisfy
// a request. Returning true requests exactly one retry (spec §6,
// "map_fail_callback(requested_size) -> retry?").
type MapFailCallback func(requestedSize uintptr) (retry bool)

// osMapper is the pluggable pair spec §4.1 describes: map reserves and
// aligns address space, unmap releases or decommits it. Config lets a
// caller substitute both, matching spec §6's "memory_map / memory_unmap
// overrides".
type osMapper interface {
	mmap(size, alignment uintptr) (base uintptr, mappedSize, offset uintptr, err error)
	munmap(base, size, offset uintptr, releaseTotal bool) error
}

var (
	pageSizeOnce    sync.Once
	osPageSize      uintptr
	mapGranularity  uintptr
	hugePagesOK     int32 // atomic bool: 0 unknown/false, 1 true
	hugePagesProbed int32
)

// discoverPageSize implements spec §4.1's init-time discovery: the page
// size is the larger of the kernel page size and 512 bytes; the map
// granularity is the kernel's allocation granularity (POSIX: page size).
func discoverPageSize() {
	pageSizeOnce.Do(func() {
		sz := uintptr(platformPageSize())
		if sz < 512 {
			sz = 512
		}
		osPageSize = sz
		mapGranularity = uintptr(platformMapGranularity())
	})
}

// defaultMapper maps directly onto the platform primitives in
// osmap_unix.go / osmap_windows.go.
type defaultMapper struct {
	enableHugePages bool
	onFail          MapFailCallback
}

func newDefaultMapper(enableHugePages bool, onFail MapFailCallback) *defaultMapper {
	discoverPageSize()
	if enableHugePages && atomic.CompareAndSwapInt32(&hugePagesProbed, 0, 1) {
		if platformProbeHugePages() {
			atomic.StoreInt32(&hugePagesOK, 1)
		}
	}
	return &defaultMapper{enableHugePages: enableHugePages, onFail: onFail}
}

// mmap reserves at least size bytes, over-allocating by alignment when
// the platform's natural mmap granularity can't guarantee it, and returns
// a base pointer adjusted so it satisfies alignment. offset is the
// padding consumed so unmap can reconstruct the original mapping.
func (m *defaultMapper) mmap(size, alignment uintptr) (base, mappedSize, offset uintptr, err error) {
	if alignment < mapGranularity {
		alignment = mapGranularity
	}
	reserve := size
	needsPad := alignment > mapGranularity
	if needsPad {
		reserve = size + alignment
	}

	for {
		var raw uintptr
		hugeAttempted := false
		if m.enableHugePages && atomic.LoadInt32(&hugePagesOK) == 1 {
			hugeAttempted = true
			raw, err = platformMapHuge(reserve)
		}
		if !hugeAttempted || err != nil {
			raw, err = platformMap(reserve)
		}
		if err == nil {
			aligned := (raw + alignment - 1) &^ (alignment - 1)
			return aligned, reserve, aligned - raw, nil
		}
		if m.onFail == nil || !m.onFail(size) {
			return 0, 0, 0, ErrOutOfMemory
		}
		// caller asked for a retry
	}
}

func (m *defaultMapper) munmap(base, size, offset uintptr, releaseTotal bool) error {
	if releaseTotal {
		origBase := base - offset
		return platformUnmap(origBase, size)
	}
	return platformDecommit(base, size)
}

// reconstructSlice builds a []byte view over a raw mapped address, needed
// because the platform primitives hand back addresses, not slices (the
// allocator's own bookkeeping lives at these addresses, which is exactly
// why we don't want a Go-GC-visible []byte retained anywhere — see span.go).
func reconstructSlice(addr, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}
