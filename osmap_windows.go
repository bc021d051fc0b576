// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package rpmalloc

import (
	"golang.org/x/sys/windows"
)

func platformPageSize() int {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return int(si.PageSize)
}

// platformMapGranularity is Windows's allocation granularity, which is
// coarser than its page size (spec §4.1 calls this out explicitly).
func platformMapGranularity() int {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return int(si.AllocationGranularity)
}

func platformMap(size uintptr) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

func platformUnmap(base, size uintptr) error {
	return windows.VirtualFree(base, 0, windows.MEM_RELEASE)
}

func platformDecommit(base, size uintptr) error {
	if err := windows.VirtualFree(base, size, windows.MEM_DECOMMIT); err != nil {
		debugf("decommit: VirtualFree(MEM_DECOMMIT) failed: %v", err)
	}
	return nil
}

func platformProbeHugePages() bool {
	return largePageMinimum() > 0
}

func platformMapHuge(size uintptr) (uintptr, error) {
	min := largePageMinimum()
	if min == 0 {
		return platformMap(size)
	}
	rounded := (size + min - 1) &^ (min - 1)
	addr, err := windows.VirtualAlloc(0, rounded, windows.MEM_COMMIT|windows.MEM_RESERVE|windows.MEM_LARGE_PAGES, windows.PAGE_READWRITE)
	if err != nil {
		return platformMap(size)
	}
	return addr, nil
}

func largePageMinimum() uintptr {
	r, _, _ := procGetLargePageMinimum.Call()
	return r
}

var (
	modkernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetLargePageMinimum = modkernel32.NewProc("GetLargePageMinimum")
)
