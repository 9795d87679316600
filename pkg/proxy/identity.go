package proxy

import "strings"

// Identity is the caller extracted from a streaming path of the form
// {prefix}{user}/{credential}/...
//
// Admission is keyed on User alone. The credential segment is not verified
// here: the origin authenticates it.
type Identity struct {
	User       string
	Credential string
}

// ExtractIdentity parses path against prefix (for example "/live/").
// It requires two non-empty, non-slash segments after the prefix, each
// followed by a slash. Paths that do not match are anonymous.
func ExtractIdentity(path, prefix string) (Identity, bool) {
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok {
		return Identity{}, false
	}

	user, rest, ok := strings.Cut(rest, "/")
	if !ok || user == "" {
		return Identity{}, false
	}
	cred, _, ok := strings.Cut(rest, "/")
	if !ok || cred == "" {
		return Identity{}, false
	}

	return Identity{User: user, Credential: cred}, true
}

// MaskCredential replaces the credential segment of a streaming path so it
// can be logged or exposed. Non-matching paths are returned unchanged.
func MaskCredential(path, prefix string) string {
	id, ok := ExtractIdentity(path, prefix)
	if !ok {
		return path
	}
	head := prefix + id.User + "/"
	return head + "***" + path[len(head)+len(id.Credential):]
}
