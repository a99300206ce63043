package feed

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

var infoHashPattern = regexp.MustCompile(`(?i)\b([a-f0-9]{40})\b`)

// ExtractInfoHash looks for a SHA-1 info hash in the entry. Attributes whose
// name mentions a hash are checked first, then description and content, then
// everything else in name order. Returns "" when nothing is found.
func ExtractInfoHash(entry Entry) string {
	var hashFields, otherFields []string
	for key := range entry {
		switch {
		case strings.Contains(key, "hash"):
			hashFields = append(hashFields, key)
		case key == "description" || key == "content" || key == "title":
		default:
			otherFields = append(otherFields, key)
		}
	}
	slices.Sort(hashFields)
	slices.Sort(otherFields)

	candidates := append(hashFields, "description", "content")
	candidates = append(candidates, otherFields...)

	for _, key := range candidates {
		if m := infoHashPattern.FindStringSubmatch(entry[key]); m != nil {
			return strings.ToLower(m[1])
		}
	}

	return ""
}

// MagnetLink builds a magnet URI for hash, carrying title as display name
func MagnetLink(hash, title string) string {
	link := "magnet:?xt=urn:btih:" + hash
	if title != "" {
		link += "&dn=" + url.QueryEscape(title)
	}
	return link
}
