package common

import "strings"

// ContainsAnyFold reports whether s contains any of subs, ignoring case.
// Used to classify driver and provider error messages.
func ContainsAnyFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
