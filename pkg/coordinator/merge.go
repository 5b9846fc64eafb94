package coordinator

// NewListMerger returns a Merger that appends each reply of type T onto an
// accumulated []T, for query kinds whose replies are plain lists (e.g. a
// block scan returning matching records from one node).
func NewListMerger[T any]() Merger {
	return func(acc, reply any) any {
		list, _ := acc.([]T)
		item, ok := reply.(T)
		if !ok {
			return list
		}
		return append(list, item)
	}
}

// NewKeyedMerger returns a Merger for replies shaped as map[string][]any,
// appending each key's entries onto the accumulated map — for query kinds
// that aggregate per feature name or per filesystem across destinations.
func NewKeyedMerger() Merger {
	return func(acc, reply any) any {
		merged, ok := acc.(map[string][]any)
		if !ok || merged == nil {
			merged = make(map[string][]any)
		}
		incoming, ok := reply.(map[string][]any)
		if !ok {
			return merged
		}
		for k, v := range incoming {
			merged[k] = append(merged[k], v...)
		}
		return merged
	}
}
