// Package gateway implements the fetch-interception state machine.
//
// Per inbound request, in order:
//  1. Scope resolution: the URL's own scope token, else the Referer's,
//     else unscoped.
//  2. Forward decision: a replaceable policy over (request, unscoped
//     path). The default forwards directory-root-like paths (final
//     segment without an extension) and script-like paths (a known
//     server-executable suffix, terminal or followed by extra path-info
//     segments).
//  3. Scoped but not forwarded: passthrough-with-unscoping; the
//     equivalent request is reissued for the unscoped URL.
//  4. Unscoped: native handling proceeds untouched, whatever the
//     policy says.
//  5. Scoped and forwarded: body parsed (form, then JSON, then empty),
//     headers collected, the HTTPRequest message broadcast to every
//     controlled context, and the correlated reply synthesized into an
//     HTTP response.
//
// Failure mapping: a reply timeout surfaces as 504 and a protocol
// violation as 502, as browser-visible failed requests rather than
// silently empty successes. An engine answering with a server-error status is a
// successful protocol exchange and passes through as that status.
package gateway
