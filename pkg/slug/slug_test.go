// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mediameter/pkg/slug"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Climate Change", "climate-change"},
		{"(economy) AND election", "economy-and-election"},
		{"Café  über", "cafe-uber"},
		{"Ünïcödé_2016!", "unicode-2016"},
		{"東京 rain", "rain"},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.From(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "climate", slug.Truncate("climate-change", 8))
	assert.Equal(t, "climate-c", slug.Truncate("climate-change", 9))
	assert.Equal(t, "rain", slug.Truncate("rain", 24))
}
