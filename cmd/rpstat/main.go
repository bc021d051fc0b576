// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rpstat is a small terminal dashboard over rpmalloc's live
// size-class occupancy: one goroutine samples rpmalloc.Snapshot on a
// ticker, another redraws a table, coordinated the same way the
// teacher's own cmd-module tooling handles "one goroutine streams data,
// another presents it" with golang.org/x/sync/errgroup. Terminal width
// comes from golang.org/x/term the same way the teacher's cmd module
// queries it for its own interactive output.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"rpmalloc"
)

type row struct {
	class int
	rpmalloc.ClassStats
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	frames := make(chan []row, 1)

	g.Go(func() error { return sample(ctx, time.Second, frames) })
	g.Go(func() error { return render(ctx, frames) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintln(os.Stderr, "rpstat:", err)
		os.Exit(1)
	}
}

func sample(ctx context.Context, interval time.Duration, out chan<- []row) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := rpmalloc.Snapshot()
			rows := make([]row, 0, len(stats))
			for i, s := range stats {
				if s.BlocksUsed > 0 || s.BlocksFree > 0 {
					rows = append(rows, row{class: i, ClassStats: s})
				}
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].BlockSize < rows[j].BlockSize })
			select {
			case out <- rows:
			default:
				// the renderer hasn't drained the last frame yet; drop this one
			}
		}
	}
}

func render(ctx context.Context, in <-chan []row) error {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rows := <-in:
			drawTable(rows, width)
		}
	}
}

func drawTable(rows []row, width int) {
	fmt.Print("\033[H\033[2J")
	fmt.Printf("%-6s %-8s %10s %10s %10s\n", "class", "type", "blockSize", "used", "free")
	for _, r := range rows {
		fmt.Printf("%-6d %-8s %10d %10d %10d\n", r.class, r.PageType, r.BlockSize, r.BlocksUsed, r.BlocksFree)
	}
	if width < 60 {
		fmt.Println("(narrow terminal; columns may wrap)")
	}
}
