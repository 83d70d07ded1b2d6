package workflow

import "sort"

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AppendUnique appends ids not already present, preserving order.
func AppendUnique(dst []string, ids ...string) []string {
	for _, id := range ids {
		if id == "" || contains(dst, id) {
			continue
		}
		dst = append(dst, id)
	}
	return dst
}

// Without returns ids minus every element of drop.
func Without(ids []string, drop ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !contains(drop, id) {
			out = append(out, id)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
