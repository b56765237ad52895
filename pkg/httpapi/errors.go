package httpapi

import "errors"

var (
	ErrStart    = errors.New("httpapi: failed to start server")
	ErrShutdown = errors.New("httpapi: failed to shut down gracefully")
)
