package logging

import (
	"fmt"
	"regexp"
	"strings"
)

// Redactor masks credentials and, optionally, client addresses in log values.
type Redactor struct {
	patterns []*redactPattern
	enabled  bool
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternStreamCredential = "stream_credential"
	PatternQueryPassword    = "query_password"
	PatternURLUserinfo      = "url_userinfo"
	PatternBearerToken      = "bearer_token"
	PatternIPv4             = "ipv4"
	PatternIPv6             = "ipv6"
)

// NewRedactor creates a Redactor for streaming paths under livePrefix.
// Client addresses are masked only when redactAddresses is set.
func NewRedactor(livePrefix string, redactAddresses bool) *Redactor {
	r := &Redactor{enabled: true}

	if livePrefix != "" {
		r.add(PatternStreamCredential,
			`(`+regexp.QuoteMeta(livePrefix)+`[^/\s?#]+/)[^/\s?#]+(/)`,
			"${1}***${2}")
	}
	r.add(PatternQueryPassword, `(?i)([?&](?:password|pass|pwd|token)=)[^&\s#]*`, "${1}***")
	r.add(PatternURLUserinfo, `(://[^/\s:@]+:)[^/\s@]+@`, "${1}***@")
	r.add(PatternBearerToken, `(?i)(Bearer|Basic)\s+[a-zA-Z0-9\-._~+/]+=*`, "$1 ***")

	if redactAddresses {
		r.add(PatternIPv4, `\b(\d{1,3}\.\d{1,3})\.\d{1,3}\.\d{1,3}\b`, "$1.*.*")
		r.add(PatternIPv6, `\b([0-9a-fA-F]{1,4}(?::[0-9a-fA-F]{1,4}){2}):[0-9a-fA-F:]*`, "$1::*")
	}

	return r
}

func (r *Redactor) add(name, expr, replacement string) {
	r.patterns = append(r.patterns, &redactPattern{
		name:        name,
		regex:       regexp.MustCompile(expr),
		replacement: replacement,
	})
}

// RedactString masks sensitive substrings of value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || !r.enabled || value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}

	return redacted
}

// isSensitiveKey checks if a key name indicates sensitive data.
func (r *Redactor) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passwd", "pwd",
		"secret", "token", "credential",
		"authorization", "cookie",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// redactValue redacts a sensitive value completely.
func (r *Redactor) redactValue(value any) any {
	switch v := value.(type) {
	case string:
		if v == "" {
			return ""
		}
		return "***"
	case fmt.Stringer:
		return "***"
	default:
		return "***"
	}
}

// RedactIPv4 masks the last two octets of an IPv4 address.
func RedactIPv4(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ip
	}

	return parts[0] + "." + parts[1] + ".*.*"
}
