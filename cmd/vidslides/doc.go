// Command vidslides is the command-line client for the vidslides daemon.
//
// Job commands talk to the daemon over its Unix socket when it is running
// and fall back to the SQLite job store otherwise, so jobs can be queued
// while the daemon is down and are picked up when it starts.
package main
