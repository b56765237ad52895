package decision

import "errors"

var (
	ErrExperimentNotFound = errors.New("experiment not found")
	ErrFlagNotFound       = errors.New("feature flag not found")
	ErrVariationNotFound  = errors.New("variation not found")
	ErrVariableNotFound   = errors.New("feature variable not found")

	// ErrStaleOverride reports a forced variation or whitelist entry that no
	// longer resolves. The entry is ignored.
	ErrStaleOverride = errors.New("override references a missing variation")

	// ErrInvalidBucketingID reports a non-string bucketing id attribute.
	// The user id is used instead.
	ErrInvalidBucketingID = errors.New("bucketing id attribute must be a string")

	ErrProfileLookup = errors.New("user profile lookup failed")

	// ErrBanditFallback reports a failed bandit fetch. The bucketed
	// variation is kept.
	ErrBanditFallback = errors.New("bandit fetch failed, using bucketed variation")

	ErrInvalidVariableValue = errors.New("invalid feature variable value")
	ErrVariableTypeMismatch = errors.New("feature variable type mismatch")
)
