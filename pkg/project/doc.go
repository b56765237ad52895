// Package project models an immutable configuration revision.
//
// A revision is decoded from a datafile (JSON or YAML), every cross
// reference is resolved once and all problems are reported together:
//
//	cfg, err := project.Parse(data)
//	if errors.Is(err, project.ErrInvalidReference) {
//		// reject the revision, keep serving the previous one
//	}
//
// Entities live in id-keyed arenas inside Config and reference each other by
// id. Lookups never fail at decision time for a Config returned by Parse or
// New. A Config is safe for concurrent reads and must never be mutated;
// publish a new revision by swapping the pointer.
package project
