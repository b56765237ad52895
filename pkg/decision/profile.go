package decision

import "context"

// ProfileStore persists sticky bucketing records keyed by user and
// experiment id. The decision service only reads from it; callers save
// fresh decisions. Implementations choose their own consistency model.
type ProfileStore interface {
	// Lookup returns the stored variation id.
	Lookup(ctx context.Context, userID, experimentID string) (variationID string, found bool, err error)
	Save(ctx context.Context, userID, experimentID, variationID string) error
	// Remove deletes one record, or every record of the user when
	// experimentID is empty.
	Remove(ctx context.Context, userID, experimentID string) error
}
