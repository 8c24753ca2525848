// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slice adds the generic helpers the standard [slices] package lacks.
package slice

// Map returns transform applied to every element of input, preserving order.
// A nil input maps to nil so absent JSON arrays stay absent.
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}
	return result
}
