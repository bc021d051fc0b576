// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "errors"

// ErrOutOfMemory is returned when an OS mapping could not be satisfied and
// no map-fail callback (or a declining one) left no retry available.
var ErrOutOfMemory = errors.New("rpmalloc: out of memory")

// ErrInvalidArgument is returned for a non-power-of-two alignment, an
// alignment above the span-size ceiling, or an overflowing count*size
// product.
var ErrInvalidArgument = errors.New("rpmalloc: invalid argument")

// ErrNotInitialized reports that Init has not run. No function in this
// package returns it: the first allocation runs Init implicitly.
var ErrNotInitialized = errors.New("rpmalloc: not initialized")

// corruptionError is panicked (never returned) when an internal invariant
// is violated — the Go analogue of the teacher's throw() for conditions
// that indicate a bug in the allocator itself rather than caller misuse.
type corruptionError string

func (e corruptionError) Error() string { return "rpmalloc: " + string(e) }

func fatal(msg string) {
	panic(corruptionError(msg))
}
