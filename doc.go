// Package mappy implements a maplet: a quotient-filter-based approximate
// key-value store. A maplet answers "what value is associated with this
// key?" under a one-sided error guarantee — a query never misses the true
// contribution of an inserted key, but may return it merged with the
// contribution of a small number of other keys that happen to share a
// fingerprint.
//
// The package is organized leaves-first:
//
//  1. a fingerprint hasher (hash.go) derives a fixed-width fingerprint from
//     a key and splits it into quotient and remainder.
//  2. a quotient filter (slot.go, filter.go) stores fingerprints in a slot
//     array using run/cluster encoding, linear probing on insert, and a
//     multiset counter to make deletion safe under duplicates.
//  3. a value table (value.go) holds one optional value per slot, combined
//     through a pluggable merge operator (merge.go) on collision.
//  4. the engine (engine.go) composes the three into a key-value API with
//     auto-resize, collision accounting, and a single reader-writer lock
//     pair covering both the filter and the value table together.
package mappy
