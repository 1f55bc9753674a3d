// Package preflight provides readiness checks for the filesystem paths and
// services vidslides depends on.
//
// The daemon runs RunAll at startup and logs each failure; the CLI
// "vidslides status" command renders the same results. Checks for optional
// features are skipped when the feature is not configured.
package preflight
