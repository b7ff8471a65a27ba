package gateway

import (
	"net/http"
	"path"
	"strings"
)

// Policy decides whether a request is forwarded to an Execution Engine.
// It sees the original request and the unscoped URL path. Callers may
// replace the default heuristic entirely.
type Policy func(r *http.Request, unscopedPath string) bool

// DefaultScriptSuffixes are the server-executable suffixes the default
// policy recognizes.
var DefaultScriptSuffixes = []string{".php"}

// DefaultPolicy forwards directory-root-like paths and script-like
// paths. A path is directory-root-like when its final segment has no
// file extension ("/", "/blog/", "/about"). It is script-like when it
// ends with a script suffix ("/index.php") or a script suffix is
// followed by additional path-info segments ("/index.php/extra").
//
// The heuristic can misclassify extensionless static resources as
// server paths; it is a replaceable default, not a guaranteed
// classification rule.
func DefaultPolicy(scriptSuffixes []string) Policy {
	if len(scriptSuffixes) == 0 {
		scriptSuffixes = DefaultScriptSuffixes
	}
	suffixes := make([]string, len(scriptSuffixes))
	for i, s := range scriptSuffixes {
		suffixes[i] = strings.ToLower(s)
	}

	return func(_ *http.Request, unscopedPath string) bool {
		p := unscopedPath
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
		if p == "" {
			p = "/"
		}

		lower := strings.ToLower(p)
		for _, suffix := range suffixes {
			if strings.HasSuffix(lower, suffix) {
				return true
			}
			if strings.Contains(lower, suffix+"/") {
				return true
			}
		}

		// Trailing slash means a directory root.
		if strings.HasSuffix(p, "/") {
			return true
		}
		return path.Ext(p) == ""
	}
}
