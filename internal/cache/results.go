package cache

// Result is the outcome of looking up one key.
type Result[V any] struct {
	Key   string
	Value V
	Found bool
}

// Results holds one Result per distinct requested key, in caller order.
type Results[V any] struct {
	order []string
	items map[string]Result[V]
}

func newResults[V any](capacity int) *Results[V] {
	return &Results[V]{
		order: make([]string, 0, capacity),
		items: make(map[string]Result[V], capacity),
	}
}

func (r *Results[V]) set(res Result[V]) {
	if _, seen := r.items[res.Key]; !seen {
		r.order = append(r.order, res.Key)
	}
	r.items[res.Key] = res
}

func (r *Results[V]) has(key string) bool {
	_, ok := r.items[key]
	return ok
}

// Get returns the value for key and whether a live entry was found.
func (r *Results[V]) Get(key string) (V, bool) {
	res := r.items[key]
	return res.Value, res.Found
}

// Len reports the number of distinct keys.
func (r *Results[V]) Len() int { return len(r.order) }

// Keys returns the distinct keys in the order they were requested.
func (r *Results[V]) Keys() []string {
	return append([]string(nil), r.order...)
}

// All returns every Result in request order.
func (r *Results[V]) All() []Result[V] {
	out := make([]Result[V], 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.items[key])
	}
	return out
}

// Hits returns the found entries keyed by unprefixed key.
func (r *Results[V]) Hits() map[string]V {
	out := make(map[string]V, len(r.items))
	for key, res := range r.items {
		if res.Found {
			out[key] = res.Value
		}
	}
	return out
}

// Missing returns the absent keys in request order.
func (r *Results[V]) Missing() []string {
	var out []string
	for _, key := range r.order {
		if !r.items[key].Found {
			out = append(out, key)
		}
	}
	return out
}
