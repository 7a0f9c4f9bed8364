// Package query parses an HTTP query string into a flat string map,
// rejecting anything that doesn't fit that shape.
package query

import (
	"errors"
	"strings"
)

// ErrMalformed is returned for a query string containing a pair without
// exactly one '=', or the same key more than once.
var ErrMalformed = errors.New("query: malformed query string")

// Parse splits raw on '&' and then on '=', rejecting duplicate keys and
// any pair that isn't exactly key=value. An empty string parses to an
// empty, non-nil map.
func Parse(raw string) (map[string]string, error) {
	result := make(map[string]string)
	if raw == "" {
		return result, nil
	}

	for _, pair := range strings.Split(raw, "&") {
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			return nil, ErrMalformed
		}
		k, v := parts[0], parts[1]
		if _, exists := result[k]; exists {
			return nil, ErrMalformed
		}
		result[k] = v
	}

	return result, nil
}
