// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package query

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	labelAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	maxKeywordName = 22
	ellipsis       = "..."
	emptyName      = "empty"
	copyPrefix     = "Copy of "
)

// defaultNamePattern matches names of the "Query A" form.
var defaultNamePattern = regexp.MustCompile(`^Query [A-Z]+$`)

// palette is cycled by query ordinal.
var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// AlphaLabel returns the spreadsheet-column label of n: 1 is "A", 26 is
// "Z", 27 is "AA", 53 is "BA". It returns "" for n < 1.
func AlphaLabel(n int) string {
	var label []byte
	for n > 0 {
		n--
		label = append(label, labelAlphabet[n%26])
		n /= 26
	}
	for i, j := 0, len(label)-1; i < j; i, j = i+1, j-1 {
		label[i], label[j] = label[j], label[i]
	}
	return string(label)
}

// Palette returns the color for index i as "#rrggbb".
func Palette(i int) string {
	i %= len(palette)
	if i < 0 {
		i += len(palette)
	}
	return palette[i]
}

// DefaultName returns the name of an unnamed query with the given ordinal.
func DefaultName(ordinal int) string {
	return "Query " + AlphaLabel(ordinal)
}

// NameSource is the property auto-naming derives names from.
type NameSource int

const (
	// NameNone leaves names untouched.
	NameNone NameSource = iota
	// NameByKeywords names queries after their keywords.
	NameByKeywords
	// NameByDates names queries after their date range.
	NameByDates
)

func (source NameSource) String() string {
	switch source {
	case NameByKeywords:
		return "keywords"
	case NameByDates:
		return "dates"
	default:
		return "none"
	}
}

// keywordName shortens keywords to a display name.
func keywordName(keywords string) string {
	if isBlank(keywords) {
		return emptyName
	}
	keywords = norm.NFC.String(keywords)
	if utf8.RuneCountInString(keywords) > maxKeywordName {
		return string([]rune(keywords)[:maxKeywordName]) + ellipsis
	}
	return keywords
}

func dateName(start, end string) string {
	return start + " - " + end
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
