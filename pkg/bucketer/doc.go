// Package bucketer assigns users to traffic ranges deterministically.
//
// The bucketing key (the user id, or an explicit bucketing id) is
// concatenated with the parent entity id and hashed with 32-bit MurmurHash3
// using seed 1. The hash is scaled onto [0, 10000) and matched against the
// cumulative ranges of a traffic allocation:
//
//	variationID, ok := bucketer.Bucket(exp.ID, userID, exp.TrafficAllocation)
//
// The algorithm and seed are a compatibility contract with every other
// implementation of the datafile format, so a user lands in the same
// variation everywhere.
//
// Experiments in a mutually exclusive group are bucketed twice: first
// against the group allocation (hashed with the group id) to pick the one
// eligible experiment, then against that experiment's own allocation.
//
// All functions are pure and safe for concurrent use.
package bucketer
