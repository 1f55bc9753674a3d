// Package workflow runs queued jobs one at a time.
//
// The Coordinator owns a single worker goroutine fed by a wake channel. New
// jobs are inserted as pending and immediately offered to the worker through
// DispatchNext, which claims the oldest pending job with one atomic store
// statement that refuses to claim while another job is running. When a run
// finishes, onTerminal persists the outcome, publishes an event and a
// notification, then dispatches the next pending job. A failure never stops
// the queue.
//
// At startup, jobs still marked running from a previous process are failed
// with "Interrupted by daemon restart" and the pending backlog is drained.
package workflow
