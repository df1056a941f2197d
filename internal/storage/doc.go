// Package storage persists extracted records.
//
// The record file is the contract with the display front-end: a single JSON
// object indented by two spaces, replaced atomically on every write so a
// reader never sees a partial file. The data directory additionally keeps an
// append-only history of past rotations, one JSON record per line.
package storage
