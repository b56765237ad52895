// Package decision decides which variation a user receives.
//
// An experiment decision runs an ordered list of resolvers and stops at the
// first one that settles the outcome:
//
//  1. status: experiments that are not running bucket nobody, not even
//     forced users
//  2. forced variation set through Overrides
//  3. whitelist declared in the datafile
//  4. sticky record from the ProfileStore
//  5. audience: anything but a definite true stops here
//  6. bucketing, optionally replaced by a bandit prediction
//
// Stale forced variations, whitelist entries and stored records that point
// at removed variations are skipped, never fatal.
//
// Feature flags add forced decisions per flag or per rule, evaluate the
// flag's experiment rules (launched experiments are tolerated), then its
// rollout rules, and finally fall back to a disabled decision.
//
// The service only reads from the profile store. Callers persist decisions
// whose Source is Persistable. Every degraded path is reported to the
// ErrorHandler and the call still returns a usable result.
package decision
