package profile

import "errors"

var (
	// ErrInvalidKey is returned when a user or experiment id is empty.
	ErrInvalidKey = errors.New("profile: user and experiment ids are required")

	ErrLookupFailed = errors.New("profile: lookup failed")
	ErrSaveFailed   = errors.New("profile: save failed")
	ErrRemoveFailed = errors.New("profile: remove failed")

	ErrNotReady          = errors.New("profile: store did not become ready")
	ErrHealthcheckFailed = errors.New("profile: healthcheck failed")
)

// ValidateKey checks the identifiers of a Save. Lookups and removals accept
// an empty experiment id where the operation allows it.
func ValidateKey(userID, experimentID string) error {
	if userID == "" || experimentID == "" {
		return ErrInvalidKey
	}
	return nil
}
