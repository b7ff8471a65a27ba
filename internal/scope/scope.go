package scope

import (
	"errors"
	"strings"
)

// Prefix marks the leading path segment that carries a scope token.
const Prefix = "scope:"

var (
	// ErrAlreadyScoped is returned by Set when the path already carries a token.
	ErrAlreadyScoped = errors.New("scope: path is already scoped")
	// ErrInvalidToken is returned by Set for tokens outside the allowed alphabet.
	ErrInvalidToken = errors.New("scope: invalid token")
)

// IsScoped reports whether the path carries an embedded scope token.
func IsScoped(path string) bool {
	_, ok := Get(path)
	return ok
}

// Get extracts the scope token from a path. The second return value is
// false when the path is unscoped.
func Get(path string) (string, bool) {
	seg := firstSegment(path)
	if !strings.HasPrefix(seg, Prefix) {
		return "", false
	}
	token := seg[len(Prefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

// Set embeds a token as the leading path segment. It fails when the
// path is already scoped; re-scoping is never implicit. A path without
// a leading slash is rooted first, so round-tripping through Remove
// returns the rooted form, not the original input.
func Set(path, token string) (string, error) {
	if !ValidToken(token) {
		return "", ErrInvalidToken
	}
	if IsScoped(path) {
		return "", ErrAlreadyScoped
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "/" + Prefix + token + path, nil
}

// Remove strips an embedded scope token. Unscoped paths pass through
// unchanged.
func Remove(path string) string {
	if !IsScoped(path) {
		return path
	}
	trimmed := strings.TrimPrefix(path, "/")
	rest := ""
	if i := strings.Index(trimmed, "/"); i >= 0 {
		rest = trimmed[i:]
	}
	if rest == "" {
		return "/"
	}
	return rest
}

// ValidToken reports whether a token fits the embedding alphabet:
// non-empty and free of the path separator.
func ValidToken(token string) bool {
	return token != "" && !strings.ContainsAny(token, "/")
}

// firstSegment returns the first path segment without surrounding slashes.
func firstSegment(path string) string {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.Index(seg, "/"); i >= 0 {
		seg = seg[:i]
	}
	return seg
}
