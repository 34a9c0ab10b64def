package worker

import "strings"

// Allowed applies the include/exclude policy to a candidate URL: it must
// contain every include substring and none of the exclude substrings.
func Allowed(rawURL string, include, exclude []string) bool {
	for _, inc := range include {
		if !strings.Contains(rawURL, inc) {
			return false
		}
	}
	for _, ex := range exclude {
		if strings.Contains(rawURL, ex) {
			return false
		}
	}
	return true
}
