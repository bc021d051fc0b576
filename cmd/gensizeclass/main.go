// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gensizeclass regenerates sizeclass_table.go, a literal dump of
// the size-class table that sizeclass.go's computeSizeClasses builds at
// init. It plays the same maintenance-script role the Go toolchain's own
// runtime/mksizeclasses.go plays for runtime/sizeclasses.go: the table is
// derived mechanically from a handful of constants, so rather than trust
// hand-edits the generator recomputes it and a test in the main package
// compares the generated table against computeSizeClasses's output.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math/bits"
	"os"

	"golang.org/x/tools/imports"
)

// The constants below mirror sizeclass.go's unexported ones. They are
// duplicated rather than imported because this generator intentionally
// builds the table from first principles, independent of the package
// it verifies; sizeclass_table_test.go is what keeps the two in sync.
const (
	minAlignShift = 4
	minAlign      = 1 << minAlignShift

	smallPageSize  = 8 * 1024
	mediumPageSize = 32 * 1024
	largePageSize  = 64 * 1024

	smallSizeMax  = 2048
	mediumSizeMax = 16 * 1024
	largeSizeMax  = 32 * 1024
)

type pageType int

const (
	pageSmall pageType = iota
	pageMedium
	pageLarge
)

func (t pageType) goExpr() string {
	switch t {
	case pageSmall:
		return "PageSmall"
	case pageMedium:
		return "PageMedium"
	default:
		return "PageLarge"
	}
}

func pageSizeFor(t pageType) uint32 {
	switch t {
	case pageSmall:
		return smallPageSize
	case pageMedium:
		return mediumPageSize
	default:
		return largePageSize
	}
}

func pageTypeForBlockSize(sz uint32) pageType {
	switch {
	case sz <= smallSizeMax:
		return pageSmall
	case sz <= mediumSizeMax:
		return pageMedium
	default:
		return pageLarge
	}
}

func blockSizeForClassIndex(idx int) uint32 {
	var blocks uint32
	if idx < 8 {
		blocks = uint32(idx) + 1
	} else {
		rel := idx - 8
		e := 4 + rel/4
		sub := uint32(rel % 4)
		n := (uint32(1) << uint(e-1)) | (sub << uint(e-3)) | (uint32(1)<<uint(e-3) - 1)
		blocks = n + 1
	}
	return blocks * minAlign
}

type row struct {
	blockSize     uint32
	pageType      pageType
	blocksPerPage uint32
}

func buildTable() []row {
	var rows []row
	for idx := 0; ; idx++ {
		blockSize := blockSizeForClassIndex(idx)
		if blockSize > largeSizeMax {
			break
		}
		pt := pageTypeForBlockSize(blockSize)
		rows = append(rows, row{
			blockSize:     blockSize,
			pageType:      pt,
			blocksPerPage: pageSizeFor(pt) / blockSize,
		})
	}
	_ = bits.Len32 // kept available for future boundary assertions
	return rows
}

func render(rows []row) []byte {
	var buf bytes.Buffer
	buf.WriteString("// Copyright 2009 The Go Authors. All rights reserved.\n")
	buf.WriteString("// Use of this source code is governed by a BSD-style\n")
	buf.WriteString("// license that can be found in the LICENSE file.\n\n")
	buf.WriteString("// Code generated by cmd/gensizeclass; DO NOT EDIT.\n\n")
	buf.WriteString("package rpmalloc\n\n")
	fmt.Fprintf(&buf, "// generatedSizeClasses is cmd/gensizeclass's independently derived copy\n")
	fmt.Fprintf(&buf, "// of sizeClasses, used by a test to catch drift between the two.\n")
	fmt.Fprintf(&buf, "var generatedSizeClasses = []sizeClassInfo{\n")
	for _, r := range rows {
		fmt.Fprintf(&buf, "\t{blockSize: %d, pageType: %s, blocksPerPage: %d},\n",
			r.blockSize, r.pageType.goExpr(), r.blocksPerPage)
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

func main() {
	out := flag.String("o", "sizeclass_table.go", "output file")
	flag.Parse()

	src := render(buildTable())
	formatted, err := imports.Process(*out, src, nil)
	if err != nil {
		log.Fatalf("gensizeclass: formatting %s: %v", *out, err)
	}
	if err := os.WriteFile(*out, formatted, 0o644); err != nil {
		log.Fatalf("gensizeclass: writing %s: %v", *out, err)
	}
}
