// Package scope encodes and decodes scope tokens embedded in URL paths.
//
// A scope token multiplexes multiple independent Execution Engine
// instances under a single origin. The embedding convention is a
// distinguished leading path segment:
//
//	/scope:<token>/<original-path>
//
// All functions are pure and operate on rooted path strings. The token
// alphabet excludes the path separator, keeping segment boundaries
// unambiguous.
//
// Laws:
//   - Remove(Set(p, t)) == p for every path p and valid token t
//   - Get(Set(p, t)) == t
package scope
