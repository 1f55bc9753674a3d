// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Service errors travel in the Failure field of each response so the client
// can hand callers the same *api.ServiceError the HTTP API would produce;
// net/rpc would otherwise flatten them into strings.
package ipc
