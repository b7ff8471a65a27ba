// Package protocol defines the wire messages exchanged between the
// gateway and Execution Engine contexts.
//
// All messages are JSON objects discriminated by a "type" tag and
// serialized with bytedance/sonic:
//
// Message Types (Gateway → Engine):
//   - HTTPRequest: a forwarded HTTP request tagged with a scope token
//     and a correlation id
//
// Message Types (Engine → Gateway):
//   - response: exactly one reply per accepted HTTPRequest, carrying
//     the same correlation id
//   - attach: an engine announcing which scope it owns (bookkeeping
//     only, never used for addressing)
//   - ping: keep-alive
//
// The correlation id is the unit of request/reply matching: a pending
// request, the HTTPRequest tagged with its id, and the response that
// resolves it form one triple. Engines that do not own the scope of an
// HTTPRequest must discard it without replying.
package protocol
