package logging

import "strings"

// IsRateLimit reports whether err reads like an upstream rate-limit
// rejection (HTTP 429 or an explicit rate_limit error payload).
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "429")
}

// IsOverloaded reports whether err indicates the upstream service is
// shedding load. Anthropic answers with 529 overloaded_error, most
// other APIs with 503.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "529") ||
		strings.Contains(msg, "503")
}

// Transient reports whether a failed upstream call is worth repeating
// on a later cycle without operator attention.
func Transient(err error) bool {
	return IsRateLimit(err) || IsOverloaded(err)
}
