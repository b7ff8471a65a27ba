// Package server wires the gateway together: configuration, logging,
// metrics, tracing, the interception middleware, the engine socket,
// and the control-plane API, behind one gin engine with graceful
// shutdown.
package server
