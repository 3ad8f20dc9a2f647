// Package mapper holds small generic helpers for converting between layers.
package mapper

// MapSlice applies mapFunc to each item in order, dropping nil inputs and nil outputs.
// A nil input yields an empty, non-nil slice so list responses encode as [] rather than null.
func MapSlice[T any, R any](items []*T, mapFunc func(*T) *R) []*R {
	result := make([]*R, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if mapped := mapFunc(item); mapped != nil {
			result = append(result, mapped)
		}
	}
	return result
}
