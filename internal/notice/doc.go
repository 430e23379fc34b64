// Package notice delivers transient user-visible notices ("toasts") such as
// "Marked as read" or "Failed".
//
// Notify only enqueues. A small worker pool hands each notice to a Sink (the
// document view) under a token-bucket rate limit, so a burst of mutations
// cannot flood the screen. Identical notices inside the dedup window are
// suppressed, and a bounded in-memory history is kept for the state endpoint.
//
// Lifecycle events are published on the event bus as notice.queued,
// notice.deduped, notice.dropped, notice.shown and notice.failed.
package notice
