// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package results fetches and aggregates the categorized result sets of one
query: word counts, date-bucketed counts, geographic tag counts, and a
document list (sentences or stories).

Architecture:

  - Params: the shared parameter tuple every category builds its URL from.
  - Resource: the contract each category satisfies (URL building, fetch,
    lifecycle events).
  - Remote: the generic category implementation, parameterised by entity
    type and envelope decoder.
  - Aggregate: the fixed category set of one query, republishing every
    child event on one bus.
*/
package results

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/taibuivan/mediameter/internal/media"
)

const (
	// BlankKeywords replaces empty keywords on the wire so no URL segment
	// is ever empty.
	BlankKeywords = " "

	// Wildcard replaces an absent date on the wire.
	Wildcard = "*"
)

// Params is the parameter tuple shared by every category of one query.
type Params struct {
	Keywords string
	Media    media.QueryParam
	Start    string
	End      string
}

// ParamsFunc reads the current parameters of the owning query, so that
// categories never keep a diverging copy.
type ParamsFunc func() Params

// WireKeywords returns the keywords, or [BlankKeywords] when empty.
func (params Params) WireKeywords() string {
	if params.Keywords == "" {
		return BlankKeywords
	}
	return params.Keywords
}

// WireStart returns the start date, or [Wildcard] when absent.
func (params Params) WireStart() string { return wildcard(params.Start) }

// WireEnd returns the end date, or [Wildcard] when absent.
func (params Params) WireEnd() string { return wildcard(params.End) }

// Path renders "<keywords>/<media>/<start>/<end>" with each segment
// path-escaped.
func (params Params) Path() string {
	mediaJSON, _ := json.Marshal(params.Media)
	return strings.Join([]string{
		url.PathEscape(params.WireKeywords()),
		url.PathEscape(string(mediaJSON)),
		url.PathEscape(params.WireStart()),
		url.PathEscape(params.WireEnd()),
	}, "/")
}

// KeywordPath renders the escaped keywords alone, used by demo endpoints.
func (params Params) KeywordPath() string {
	return url.PathEscape(params.WireKeywords())
}

func wildcard(value string) string {
	if value == "" {
		return Wildcard
	}
	return value
}
