// Package ws provides the engine socket: the WebSocket endpoint that
// browser contexts hosting Execution Engines connect to.
//
// Each connection is registered as a dispatch client so it receives
// every broadcast HTTPRequest. The read pump routes inbound frames:
//
// Message Types (Engine → Gateway):
//   - response: correlated reply to a forwarded request; posted to the
//     gateway's inbound bus
//   - attach: announce ownership of a scope (instance bookkeeping)
//   - ping: keep-alive
//
// Message Types (Gateway → Engine):
//   - system: connection welcome with the assigned client handle
//   - HTTPRequest: broadcast forwarded requests
//   - pong: keep-alive reply
//   - error: unrecognized inbound frame
//
// A reply that parses but carries no response payload is still posted
// so the waiting fetch fails fast instead of running out its timeout.
package ws
