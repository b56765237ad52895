package bandit

import "errors"

var (
	// ErrFetchFailed covers transport failures and non-2xx responses.
	ErrFetchFailed = errors.New("bandit fetch failed")

	// ErrInvalidResponse indicates a 2xx response whose payload does not
	// carry a prediction. It is never retried.
	ErrInvalidResponse = errors.New("invalid bandit response")

	ErrMissingEndpoint = errors.New("bandit endpoint is required")
)
