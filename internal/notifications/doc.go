// Package notifications publishes inspection outcomes to ntfy.
//
// NewService returns a no-op notifier when no topic is configured, so the
// runner can always publish without checking configuration.
package notifications
