// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package keyed

import (
	"encoding/json"
	"fmt"
)

// Child is a nested value that wants to know when its parent was decoded.
type Child interface {
	ParentSynced()
}

// Field describes one nested child of a record of type R.
//
// Attach builds the child from the raw JSON found under Name (nil when the
// key is absent), stores it on record and returns it.
type Field[R any] struct {
	Name   string
	Attach func(record *R, raw json.RawMessage) (Child, error)
}

/*
DecodeNested decodes data into record and then materialises every described
nested field.

Description: The flat part of the record is decoded with encoding/json, so
nested fields should be tagged `json:"-"` on R. Fields are attached in the
order given and each child receives exactly one ParentSynced call right
after it was attached.

Parameters:
  - data: raw JSON object
  - record: destination
  - fields: nested field descriptions

Returns:
  - error: decode failures, wrapped with the failing field name
*/
func DecodeNested[R any](data []byte, record *R, fields ...Field[R]) error {
	if err := json.Unmarshal(data, record); err != nil {
		return fmt.Errorf("keyed: decode record: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("keyed: decode record fields: %w", err)
	}

	for _, field := range fields {
		child, err := field.Attach(record, raw[field.Name])
		if err != nil {
			return fmt.Errorf("keyed: decode field %q: %w", field.Name, err)
		}
		child.ParentSynced()
	}
	return nil
}

// CollectionField describes a nested JSON array decoded into a collection.
//
// build creates the empty child (so it can carry its own key function,
// fetcher and hooks); store assigns it to the record.
func CollectionField[R any, K comparable, V any](
	name string,
	build func() *Collection[K, V],
	store func(record *R, child *Collection[K, V]),
) Field[R] {
	return Field[R]{
		Name: name,
		Attach: func(record *R, raw json.RawMessage) (Child, error) {
			child := build()
			if len(raw) > 0 && string(raw) != "null" {
				var entities []V
				if err := json.Unmarshal(raw, &entities); err != nil {
					return nil, err
				}
				child.Add(entities...)
			}
			store(record, child)
			return child, nil
		},
	}
}
