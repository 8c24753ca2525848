// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mediameter/pkg/pagination"
)

func TestFromQuery(t *testing.T) {
	tests := []struct {
		query      string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{query: "", wantPage: 1, wantLimit: 20, wantOffset: 0},
		{query: "page=3&limit=10", wantPage: 3, wantLimit: 10, wantOffset: 20},
		{query: "page=0&limit=-5", wantPage: 1, wantLimit: 1, wantOffset: 0},
		{query: "page=abc&limit=500", wantPage: 1, wantLimit: 100, wantOffset: 0},
		{query: "page=99999999", wantPage: 10_000, wantLimit: 20, wantOffset: 199_980},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)

			params := pagination.FromQuery(values)
			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantLimit, params.Limit)
			assert.Equal(t, tt.wantOffset, params.Offset())
		})
	}
}

func TestNewMeta(t *testing.T) {
	assert.Equal(t, 3, pagination.NewMeta(1, 20, 41).TotalPages)
	assert.Equal(t, 0, pagination.NewMeta(1, 20, 0).TotalPages)
	assert.Equal(t, 0, pagination.NewMeta(1, 0, 10).TotalPages)
}
