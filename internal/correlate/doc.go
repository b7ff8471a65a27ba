// Package correlate turns unordered asynchronous message passing into
// a request/response contract with deadlines.
//
// Features:
//   - Process-unique, strictly increasing correlation ids
//   - Pending-request table with exactly-once resolution
//   - Deadline-bounded waiting with guaranteed subscription cleanup
//   - Late and unrelated replies dropped silently, never errors
//
// The Channel interface abstracts the ambient message transport so the
// same correlator runs against an in-process bus in tests and against
// the gateway's inbound reply bus in production. Subscriptions are
// scoped acquisitions: every exit path of a wait (reply, malformed
// reply, timeout, cancellation) removes the listener.
package correlate
