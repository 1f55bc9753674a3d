// Package daemonctl launches, queries and stops the background daemon from
// the CLI.
package daemonctl
