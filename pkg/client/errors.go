package client

import "errors"

var (
	ErrNilConfig = errors.New("client: configuration is required")

	// ErrProfileSave reports a decision that could not be persisted. The
	// decision itself is still returned.
	ErrProfileSave = errors.New("client: failed to save user profile")

	// ErrDispatch reports an event that the dispatcher rejected.
	ErrDispatch = errors.New("client: failed to dispatch event")
)
