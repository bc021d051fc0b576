// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmalloc

import "testing"

// TestGeneratedSizeClassesMatchComputed guards against cmd/gensizeclass's
// copy of the size-class derivation drifting from computeSizeClasses's.
func TestGeneratedSizeClassesMatchComputed(t *testing.T) {
	if len(generatedSizeClasses) != len(sizeClasses) {
		t.Fatalf("generated table has %d classes, computed has %d", len(generatedSizeClasses), len(sizeClasses))
	}
	for i, want := range sizeClasses {
		got := generatedSizeClasses[i]
		if got != want {
			t.Errorf("class %d: generated %+v, computed %+v", i, got, want)
		}
	}
}
