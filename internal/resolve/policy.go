package resolve

import "strings"

// looseMatch is the permissive fallback matching policy: bidirectional
// substring containment between the incoming name and a cached name,
// both lowercased. Known to over-match on short or common names
// ("Will Smith" vs "Will"); kept deliberately, isolated here so a
// stricter policy can replace it without touching the resolver.
func looseMatch(incoming, cached string) bool {
	if incoming == "" || cached == "" {
		return false
	}
	return strings.Contains(cached, incoming) || strings.Contains(incoming, cached)
}
