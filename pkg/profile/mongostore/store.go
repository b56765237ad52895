package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/profile"
)

var _ decision.ProfileStore = (*Store)(nil)

// document is one user profile. Experiment ids are numeric strings, which
// are valid field names.
type document struct {
	UserID     string            `bson:"_id"`
	Variations map[string]string `bson:"variations"`
}

// Store keeps one document per user.
type Store struct {
	coll *mongo.Collection
}

// New stores one document per user in coll.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// NewFromConfig connects and returns the store with its client.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, *mongo.Client, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return New(client.Database(cfg.Database).Collection(cfg.Collection)), client, nil
}

func field(experimentID string) string {
	return "variations." + experimentID
}

// Lookup returns the stored variation id of userID in experimentID.
func (s *Store) Lookup(ctx context.Context, userID, experimentID string) (string, bool, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}},
		options.FindOne().SetProjection(bson.D{{Key: field(experimentID), Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Join(profile.ErrLookupFailed, err)
	}
	v, ok := doc.Variations[experimentID]
	return v, ok, nil
}

// Save upserts the variation id.
func (s *Store) Save(ctx context.Context, userID, experimentID, variationID string) error {
	if err := profile.ValidateKey(userID, experimentID); err != nil {
		return err
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: field(experimentID), Value: variationID}}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(profile.ErrSaveFailed, err)
	}
	return nil
}

// Remove deletes one experiment record of userID.
func (s *Store) Remove(ctx context.Context, userID, experimentID string) error {
	var err error
	if experimentID == "" {
		_, err = s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: userID}})
	} else {
		_, err = s.coll.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: userID}},
			bson.D{{Key: "$unset", Value: bson.D{{Key: field(experimentID), Value: ""}}}},
		)
	}
	if err != nil {
		return errors.Join(profile.ErrRemoveFailed, err)
	}
	return nil
}

// Profile returns every record stored for the user.
func (s *Store) Profile(ctx context.Context, userID string) (map[string]string, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Join(profile.ErrLookupFailed, err)
	}
	if doc.Variations == nil {
		doc.Variations = map[string]string{}
	}
	return doc.Variations, nil
}
