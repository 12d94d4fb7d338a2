package redact

import "strings"

// Keys is a case-insensitive set of key names whose values are scrubbed
// wherever they appear in captured data.
type Keys map[string]struct{}

// NewKeys merges the given key lists. Blank names are ignored.
func NewKeys(lists ...[]string) Keys {
	keys := Keys{}
	for _, list := range lists {
		for _, k := range list {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			keys[strings.ToLower(k)] = struct{}{}
		}
	}
	return keys
}

func (k Keys) Has(name string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(name)]
	return ok
}
