package condition

import "errors"

var (
	// ErrInvalidCondition indicates a condition tree that cannot be decoded.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrInvalidVersion indicates a malformed semantic version string.
	ErrInvalidVersion = errors.New("invalid semantic version")
)
