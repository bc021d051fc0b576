// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package rpmalloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// platformProbeHugePages attempts one throwaway huge-page mapping to
// decide whether MAP_HUGETLB is usable on this machine. Spec §4.1: "Huge
// page support is detected once and stored as a global flag."
func platformProbeHugePages() bool {
	const probeSize = 2 * 1024 * 1024 // typical x86 huge page size
	data, err := unix.Mmap(-1, 0, probeSize, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_HUGETLB)
	if err != nil {
		return false
	}
	_ = unix.Munmap(data)
	return true
}

func platformMapHuge(size uintptr) (uintptr, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_HUGETLB)
	if err != nil {
		return 0, err
	}
	return uintptr(unsafe.Pointer(&data[0])), nil
}
