package bucketer

import (
	"github.com/spaolacci/murmur3"

	"github.com/dmitrymomot/flagkit/pkg/project"
)

// HashSeed is the MurmurHash3 seed shared by every implementation of the
// datafile format. Changing it reshuffles every user.
const HashSeed uint32 = 1

const maxHashValue = float64(1 << 32)

// Outcome explains the result of bucketing a user into an experiment.
type Outcome string

const (
	OutcomeBucketed         Outcome = "bucketed"
	OutcomeNoTraffic        Outcome = "outside traffic allocation"
	OutcomeNotInGroup       Outcome = "not bucketed into any experiment of the group"
	OutcomeOtherGroupMember Outcome = "bucketed into another experiment of the group"
	OutcomeUnknownVariation Outcome = "allocated variation does not exist"
)

// BucketValue maps a bucketing key onto [0, MaxTrafficValue).
func BucketValue(key string) int {
	h := murmur3.Sum32WithSeed([]byte(key), HashSeed)
	return int(float64(h) / maxHashValue * project.MaxTrafficValue)
}

// Bucket hashes bucketingKey+entityID and returns the allocated entity id.
// It returns false when the value falls beyond every range or into a range
// with an empty entity id.
func Bucket(entityID, bucketingKey string, allocation []project.TrafficAllocation) (string, bool) {
	return Allocate(BucketValue(bucketingKey+entityID), allocation)
}

// Allocate returns the entity of the first range whose end exceeds value.
func Allocate(value int, allocation []project.TrafficAllocation) (string, bool) {
	for _, r := range allocation {
		if value < r.EndOfRange {
			if r.EntityID == "" {
				return "", false
			}
			return r.EntityID, true
		}
	}
	return "", false
}

// Experiment buckets a user into a variation of exp. For members of a
// mutually exclusive group the user is first bucketed against the group
// allocation, hashed with the group id, and must land on exp itself.
func Experiment(cfg *project.Config, exp *project.Experiment, bucketingKey string) (*project.Variation, Outcome) {
	if exp.GroupID != "" {
		if group, ok := cfg.Group(exp.GroupID); ok && group.IsMutuallyExclusive() {
			picked, ok := Bucket(group.ID, bucketingKey, group.TrafficAllocation)
			if !ok {
				return nil, OutcomeNotInGroup
			}
			if picked != exp.ID {
				return nil, OutcomeOtherGroupMember
			}
		}
	}

	variationID, ok := Bucket(exp.ID, bucketingKey, exp.TrafficAllocation)
	if !ok {
		return nil, OutcomeNoTraffic
	}
	v, ok := exp.VariationByID(variationID)
	if !ok {
		return nil, OutcomeUnknownVariation
	}
	return v, OutcomeBucketed
}
