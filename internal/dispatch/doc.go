// Package dispatch fans messages out to every controlled browser
// context.
//
// The gateway cannot address the context that owns a given scope's
// Execution Engine directly: contexts are known only by opaque client
// handles. Broadcast-and-self-select is therefore an invariant of the
// design, not an optimization shortcut: every claimed client receives
// every broadcast, recognizes by scope token whether it owns the
// addressed engine, and silently discards messages for scopes it does
// not own.
//
// Features:
//   - Opaque ctx_-prefixed client handles
//   - Mutex-serialized writes per connection
//   - Claim-on-activation so contexts connected before the gateway
//     became active are served without reconnecting
//   - Per-client send failures logged, never fatal to a broadcast
package dispatch
