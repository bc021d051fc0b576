// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import (
	"runtime"
	"strconv"
)

// currentThreadID stands in for spec §3's "current_thread_id()". Go has
// no public, stable notion of the executing OS thread or even a fixed
// goroutine for the lifetime of a call — a goroutine can migrate between
// Ms, and there is no exported goroutine-id API. We fall back to the
// well-known trick (popularized by github.com/petermattis/goid) of
// parsing the decimal goroutine id out of runtime.Stack's header line,
// the same "goroutine NNNN [running]:" text the teacher's own runtime
// uses to label stack dumps (see runtime/traceback.go's goroutineheader).
//
// Correctness does not depend on this id being stable across a
// goroutine's lifetime: it only ever gates which thread is treated as a
// page's "owner" for the fast local-free-list path. A wrong answer here
// just routes a free down the (always-correct) cross-thread deferred
// path instead of the fast path — see DESIGN.md's Open Question
// resolution on thread identity.
func currentThreadID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGoroutineID(buf[:n])
}

func parseGoroutineID(b []byte) uint64 {
	const prefix = "goroutine "
	if len(b) < len(prefix) || string(b[:len(prefix)]) != prefix {
		return 0
	}
	b = b[len(prefix):]
	end := 0
	for end < len(b) && b[end] >= '0' && b[end] <= '9' {
		end++
	}
	id, err := strconv.ParseUint(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
