// Package textutil holds small string helpers shared by request handling.
package textutil

// DedupeBy maps each value through canon and keeps the first occurrence of
// every non-empty canonical form, in input order.
//
//	DedupeBy([]string{" A@x.io", "a@x.io ", ""}, usermodels.NormalizeEmail)
//	// []string{"a@x.io"}
func DedupeBy(values []string, canon func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		c := canon(v)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
