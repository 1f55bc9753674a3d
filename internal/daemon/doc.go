// Package daemon coordinates the long-running vidslides process.
//
// It wires configuration, the job store, the workflow coordinator and the
// HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances. Job lifecycle events are fanned out to websocket
// subscribers of /api/events through EventHub.
//
// Keep orchestration logic here: pipeline stages live in their own packages
// while the daemon focuses on startup, shutdown and transport.
package daemon
