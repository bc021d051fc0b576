// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "log"

// Debug gates the allocator's internal consistency assertions and its
// diagnostic logging. It costs nothing on the hot path when false (the
// checks it guards are never reached), mirroring the teacher's build-time
// debug.* switches in malloc.go — we don't have build tags for this since
// the module ships as a normal library, so it's a variable instead.
var Debug = false

var debugLog = log.New(log.Writer(), "rpmalloc: ", log.LstdFlags)

func debugf(format string, args ...any) {
	if Debug {
		debugLog.Printf(format, args...)
	}
}

// assert panics with a corruptionError when Debug is enabled and cond is
// false. Release builds (Debug == false) never pay for the check's
// surrounding bookkeeping beyond the boolean test itself.
func assert(cond bool, msg string) {
	if Debug && !cond {
		fatal(msg)
	}
}
