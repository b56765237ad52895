package event

import "errors"

var (
	ErrUnknownEvent = errors.New("unknown event key")
	ErrInvalidTag   = errors.New("invalid numeric tag")
)
