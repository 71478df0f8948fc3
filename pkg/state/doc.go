// Package state persists the outcome of resolution runs so a program can
// inspect or amend what an earlier run resolved.
//
// Store[T] only loads and saves a single snapshot for a single Ref. Recorder
// turns a *flagenv.Result into a Snapshot and saves it; Mutate loads one
// snapshot, applies a change, validates and saves it back.
//
// Deterministic keys:
//
//	Ref.Identifier() yields `program/<name>` or `program/<name>/profile/<profile>`
//	and is the key MemoryStore uses.
package state
