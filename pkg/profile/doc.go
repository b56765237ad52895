// Package profile provides sticky bucketing stores.
//
// Every store implements decision.ProfileStore: a user maps to a set of
// experiment id to variation id records. The decision service only reads
// from a store; the client saves fresh decisions after they are made.
//
// Memory is a bounded in-process store. The redisstore, pgstore and
// mongostore sub-packages persist profiles in Redis hashes, a Postgres table
// and one MongoDB document per user. Each backend ships a Config populated
// from the environment, a Connect helper that retries until the backend is
// ready and a Healthcheck suitable for readiness checks.
//
// Stores do not coordinate concurrent writers; the last save wins.
package profile
