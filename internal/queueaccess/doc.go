// Package queueaccess lets CLI commands work on jobs whether or not the
// daemon is running: IPC when the socket answers, the SQLite store otherwise.
package queueaccess
