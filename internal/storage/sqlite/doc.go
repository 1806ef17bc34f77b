// Package sqlite persists study runs in SQLite: run metadata, wavefront
// slices, eigenrays and summed propagation loss.
//
// The schema is managed by golang-migrate from migrations embedded in the
// binary, so Open always returns a database at the latest version.
package sqlite
