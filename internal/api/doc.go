// Package api exposes the job operations shared by the HTTP server, the IPC
// server and the CLI.
//
// JobService validates create requests, enforces the duplicate job id and
// duplicate URL rules, and converts queue records into the transport DTOs
// defined in types.go. Failures surface as *ServiceError values whose Code
// maps onto an HTTP status.
package api
