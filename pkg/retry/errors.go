package retry

import "errors"

var (
	// ErrExhausted wraps the last error once every attempt has failed.
	ErrExhausted = errors.New("retry attempts exhausted")
	// ErrCircuitOpen is returned without calling fn when the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns err unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
