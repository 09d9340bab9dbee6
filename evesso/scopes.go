package evesso

import (
	"slices"
	"strings"
)

// Scopes is a normalized set of granted ESI scopes, stored sorted and
// deduplicated so that equal sets compare equal regardless of the spacing or
// ordering of the provider's scope string.
type Scopes []string

// ParseScopes splits a space-delimited scope string into a Scopes set.
// Irregular whitespace is tolerated; an empty or blank string yields an
// empty set, never a set containing the empty string.
func ParseScopes(s string) Scopes {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Scopes{}
	}
	slices.Sort(fields)
	return Scopes(slices.Compact(fields))
}

// Contains reports whether the set includes scope.
func (s Scopes) Contains(scope string) bool {
	_, found := slices.BinarySearch([]string(s), scope)
	return found
}

// Missing returns the members of required that are not in the set, in the
// order given. An empty result means the set is sufficient.
func (s Scopes) Missing(required []string) []string {
	var missing []string
	for _, scope := range required {
		if !s.Contains(scope) {
			missing = append(missing, scope)
		}
	}
	return missing
}

// String joins the set with single spaces.
func (s Scopes) String() string {
	return strings.Join([]string(s), " ")
}
