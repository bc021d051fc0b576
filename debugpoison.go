// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/crypto/blake2b"
)

// debugValidation gates an optional use-after-free detector, set once by
// Config.EnableDebugValidation at Init. It extends spec §7's "debug
// builds may assert" posture beyond the thread-free length check
// already in page.go's adoptThreadFree.
var debugValidation bool

// poisonPattern derives a repeatable, address-dependent fill byte from
// blake2b-256(addr) instead of one fixed constant, so two adjacent freed
// blocks don't carry an identical canary — a block-boundary overwrite
// that spills from one freed block into its neighbor would otherwise go
// unnoticed if both read back as the same byte.
func poisonPattern(addr uintptr) byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(addr))
	sum := blake2b.Sum256(buf[:])
	return sum[0]
}

// pointerWidth is skipped at the start of every poison region: a free
// block's first machine word is the free-list next-pointer (spec §3,
// "Block"), live data that poisoning must not disturb.
const pointerWidth = unsafe.Sizeof(uintptr(0))

// poisonFill stamps a freed block with its canary, leaving the leading
// next-pointer word untouched. Call before writeNextAddr overwrites that
// word with real list linkage, or after — the two never overlap.
func poisonFill(addr uintptr, size uint32) {
	if !debugValidation || uintptr(size) <= pointerWidth {
		return
	}
	pattern := poisonPattern(addr)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(addr+pointerWidth)), uintptr(size)-pointerWidth)
	for i := range buf {
		buf[i] = pattern
	}
}

// poisonCheck verifies a block about to be reused still carries its
// canary untouched beyond the next-pointer word; a mismatch means
// something wrote through the pointer after it was freed.
func poisonCheck(addr uintptr, size uint32) {
	if !debugValidation || uintptr(size) <= pointerWidth {
		return
	}
	pattern := poisonPattern(addr)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(addr+pointerWidth)), uintptr(size)-pointerWidth)
	for _, b := range buf {
		if b != pattern {
			fatal("poisonCheck: write after free detected")
		}
	}
}
