// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package rpmalloc

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func platformPageSize() int { return os.Getpagesize() }

// platformMapGranularity is the unit the kernel's mmap hands back
// addresses aligned to; on POSIX this is the page size (spec §4.1).
func platformMapGranularity() int { return os.Getpagesize() }

func platformMap(size uintptr) (uintptr, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	return uintptr(unsafe.Pointer(&data[0])), nil
}

func platformUnmap(base, size uintptr) error {
	return unix.Munmap(reconstructSlice(base, size))
}

// platformDecommit uses MADV_DONTNEED to release the physical
// pages backing [base, base+size) without giving up the virtual range
// (spec §4.1, "decommit"). Failure here is never fatal: the range simply
// stays resident.
func platformDecommit(base, size uintptr) error {
	buf := reconstructSlice(base, size)
	if err := unix.Madvise(buf, unix.MADV_DONTNEED); err != nil {
		debugf("decommit: madvise(MADV_DONTNEED) failed: %v", err)
	}
	return nil
}
