// Package instance manages the registry of Execution Engine instances
// multiplexed under this origin.
//
// Each instance is identified by its scope token: the opaque segment
// embedded in scoped URLs. Creating an instance mints a fresh token;
// an engine context attaches to its token over the engine socket.
//
// Attachment is bookkeeping and metrics only. Request routing never
// consults it: forwarded messages are broadcast to every controlled
// context, and engines self-select by scope.
package instance
