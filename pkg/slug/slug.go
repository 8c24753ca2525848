// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug turns free text, such as a saved search name, into the
// lowercase ASCII prefix of a shortcode ("climate-economy-3f9a1c").
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// From folds accents away ("café" becomes "cafe") and joins the remaining
// ASCII letter and digit runs with single hyphens. Everything else separates
// runs. The result may be empty.
func From(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), s)
	if err != nil {
		folded = s
	}

	var builder strings.Builder
	builder.Grow(len(folded))
	pending := false
	for _, r := range strings.ToLower(folded) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			if pending && builder.Len() > 0 {
				builder.WriteByte('-')
			}
			builder.WriteRune(r)
			pending = false
			continue
		}
		pending = true
	}
	return builder.String()
}

// Truncate cuts a slug to at most n bytes without leaving a trailing hyphen.
func Truncate(value string, n int) string {
	if len(value) <= n {
		return value
	}
	return strings.TrimRight(value[:n], "-")
}
