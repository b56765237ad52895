package dispatch

import "errors"

var (
	ErrDeliveryFailed   = errors.New("event delivery failed")
	ErrPermanentFailure = errors.New("event rejected permanently")
	ErrInvalidEvent     = errors.New("invalid log event")
	ErrClosed           = errors.New("dispatcher is closed")
	ErrInvalidConfig    = errors.New("invalid dispatcher configuration")
	ErrArchiveFailed    = errors.New("event archive failed")
	ErrIndexFailed      = errors.New("event indexing failed")
	ErrConnectionFailed = errors.New("opensearch connection failed")
	ErrHealthcheck      = errors.New("opensearch healthcheck failed")
)
