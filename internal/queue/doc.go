// Package queue persists slide deck jobs in SQLite and exposes the state
// transitions the coordinator drives.
//
// Jobs move pending -> running -> completed|failed. The only backward edge is
// ResetForReprocess, which returns a finished job to pending. ClaimNext is a
// single UPDATE ... RETURNING statement that picks the oldest pending job only
// while nothing is running, and a partial unique index on running rows backs
// the one-running-job rule at the storage level.
//
// The database is treated as the system of record for job history. Schema
// changes bump the version in schema.go; users clear the database to adopt the
// new schema.
package queue
