package project

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDatafile indicates a datafile that cannot be decoded.
	ErrInvalidDatafile = errors.New("invalid datafile")

	// ErrInvalidReference indicates an entity reference that does not resolve
	// within the same revision. It is only ever returned at load time.
	ErrInvalidReference = errors.New("invalid config reference")
)

// ReferenceError describes a single dangling or inconsistent reference
// found while building a Config.
type ReferenceError struct {
	Entity string // kind of the entity holding the reference
	ID     string // id of the entity holding the reference
	Field  string
	Ref    string
	Reason string
}

func (e *ReferenceError) Error() string {
	msg := fmt.Sprintf("%s %q: %s", e.Entity, e.ID, e.Field)
	if e.Ref != "" {
		msg += fmt.Sprintf(" %q", e.Ref)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is makes every ReferenceError match ErrInvalidReference.
func (e *ReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}
