package pages

import "fmt"

// testIDs builds a selector map of [data-testid="<id>"] lookups.
func testIDs[K ~string](keys ...K) Selectors[K] {
	m := make(Selectors[K], len(keys))
	for _, k := range keys {
		m[k] = fmt.Sprintf(`[data-testid="%s"]`, string(k))
	}
	return m
}
