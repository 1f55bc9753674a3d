// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover job completion and failure so the
// job coordinator can emit consistent messages without duplicating HTTP
// glue. Delivery runs behind a circuit breaker so an unreachable server does
// not slow down every finished job.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
