// Package timemath provides the pure time computations used by the scheduling
// tools: wall-clock/UTC conversion, half-open interval overlap, and day-boundary
// calculation.
//
// All functions are deterministic and free of I/O except Now, which reads the
// system clock. Intervals are half-open: [Start, End). Two intervals that share
// only an endpoint do not overlap.
package timemath
