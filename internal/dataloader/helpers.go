package dataloader

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys aligns values with keys. Keys without a matching value map to
// the zero value of V.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	out := make([]V, len(keys))
	for i, k := range keys {
		out[i] = lookup[k]
	}
	return out
}

// GroupByKeys groups values by keyFn and aligns the groups with keys. A key
// without matches gets an empty, non-nil slice. Values keep their input
// order inside each group.
func GroupByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) [][]V {
	groups := make(map[K][]V, len(keys))
	for _, v := range values {
		k := keyFn(v)
		groups[k] = append(groups[k], v)
	}
	out := make([][]V, len(keys))
	for i, k := range keys {
		if g, ok := groups[k]; ok {
			out[i] = g
		} else {
			out[i] = []V{}
		}
	}
	return out
}
