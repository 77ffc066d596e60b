// Package tagging derives row hashtags from per-call classification fields.
package tagging

import "strings"

// NormalizeHashtags builds a row's hashtags from the call intent followed by
// its subtopics. Values are trimmed; empty values and repeats are dropped,
// first occurrence wins. The result is nil when nothing survives.
func NormalizeHashtags(intent string, subtopics []string) []string {
	values := append([]string{intent}, subtopics...)

	seen := make(map[string]bool, len(values))
	var tags []string
	for _, v := range values {
		tag := strings.TrimSpace(v)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
