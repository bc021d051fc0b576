// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpstats exports rpmalloc's live size-class occupancy as a
// pprof profile, the same shape the teacher's own heap profiler
// (runtime/mprof.go, surfaced through cmd/pprof's use of
// github.com/google/pprof) produces for the garbage-collected heap.
package rpstats

import (
	"io"
	"strconv"
	"time"

	"github.com/google/pprof/profile"

	"rpmalloc"
)

// BuildProfile renders rpmalloc.Snapshot as a pprof-compatible
// *profile.Profile: one sample per occupied size class, valued by live
// block count and live byte count.
func BuildProfile() *profile.Profile {
	stats := rpmalloc.Snapshot()

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "objects", Unit: "count"},
			{Type: "space", Unit: "bytes"},
		},
		PeriodType: &profile.ValueType{Type: "space", Unit: "bytes"},
		Period:     1,
		TimeNanos:  time.Now().UnixNano(),
	}

	var nextID uint64
	for i, s := range stats {
		if s.BlocksUsed == 0 {
			continue
		}
		nextID++
		fn := &profile.Function{ID: nextID, Name: classLabel(i, s)}
		p.Function = append(p.Function, fn)

		nextID++
		loc := &profile.Location{ID: nextID, Line: []profile.Line{{Function: fn}}}
		p.Location = append(p.Location, loc)

		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value: []int64{
				int64(s.BlocksUsed),
				int64(s.BlocksUsed) * int64(s.BlockSize),
			},
		})
	}
	return p
}

func classLabel(index int, s rpmalloc.ClassStats) string {
	return s.PageType.String() + "/class" + strconv.Itoa(index) + "/" + strconv.Itoa(int(s.BlockSize)) + "B"
}

// Write renders BuildProfile and writes it in pprof's gzip-compressed
// wire format to w.
func Write(w io.Writer) error {
	return BuildProfile().Write(w)
}
