package decision

import (
	"fmt"

	"github.com/dmitrymomot/flagkit/pkg/project"
)

// User is the subject of a decision.
type User struct {
	ID         string
	Attributes map[string]any
}

// BucketingID returns the key fed to the bucketer: the $opt_bucketing_id
// attribute when it is a string, the user id otherwise. A present but
// non-string attribute is reported through the error.
func (u User) BucketingID() (string, error) {
	v, ok := u.Attributes[project.AttributeBucketingID]
	if !ok || v == nil {
		return u.ID, nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return u.ID, fmt.Errorf("%w: got %T for user %q", ErrInvalidBucketingID, v, u.ID)
}
