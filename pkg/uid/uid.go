// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uid issues small, strictly increasing integer identifiers.

Each [Generator] is an independent sequence. Owners that need numbered
entities (for example a query set numbering its queries) hold their own
generator and inject it where entities are built; there is no package-level
counter.

Usage:

	ids := uid.New()
	first := ids.Next()  // 1
	second := ids.Next() // 2
*/
package uid

import (
	"math"
	"sync/atomic"
)

// Max is the largest identifier [Generator.Observe] accepts.
const Max = math.MaxInt32

// Generator hands out 1, 2, 3, ... and never reuses a value.
//
// # Concurrency
//
// Safe for concurrent use. The zero value is ready to use.
type Generator struct {
	last atomic.Int64
}

// New returns a fresh sequence starting at 1.
func New() *Generator {
	return &Generator{}
}

// Next returns the next identifier in the sequence.
func (generator *Generator) Next() int {
	return int(generator.last.Add(1))
}

// Last returns the most recently issued identifier, or 0 if none was issued.
func (generator *Generator) Last() int {
	return int(generator.last.Load())
}

// Observe records that id was issued elsewhere (for example restored from a
// shared link), so Next never returns it or anything below it. Identifiers
// outside 1..[Max] are refused and Observe reports false.
func (generator *Generator) Observe(id int) bool {
	if id < 1 || id > Max {
		return false
	}
	for {
		last := generator.last.Load()
		if int64(id) <= last || generator.last.CompareAndSwap(last, int64(id)) {
			return true
		}
	}
}
