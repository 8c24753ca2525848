// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package results

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Category names.
const (
	WordCounts = "wordcounts"
	DateCounts = "datecounts"
	TagCounts  = "tagcounts"
	Sentences  = "sentences"
	Stories    = "stories"
)

const (
	unknownSource = "unknown source"
	unknownDate   = "unknown date"

	publishLayout = "2006-01-02 15:04:05"
	dayLayout     = "2006-01-02"
	displayLayout = "Jan 2, 2006"
)

// # Entities

// WordCount is one term frequency.
type WordCount struct {
	Term  string `json:"term"`
	Stem  string `json:"stem,omitempty"`
	Count int    `json:"count"`
}

// DateCount is the number of matches on one day.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"numFound"`
	// Timestamp is the start of Date in UTC, in milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// TagCount is the number of matches per geographic tag.
type TagCount struct {
	TagID  int    `json:"tags_id,omitempty"`
	Alpha3 string `json:"alpha3"`
	Label  string `json:"label,omitempty"`
	Count  int    `json:"count"`
}

// Sentence is one matching sentence.
type Sentence struct {
	Sentence    string  `json:"sentence"`
	StoryID     int64   `json:"stories_id,omitempty"`
	MediaID     int     `json:"media_id,omitempty"`
	MediumName  *string `json:"medium_name,omitempty"`
	PublishDate *string `json:"publish_date,omitempty"`
}

// Media returns the outlet name or "unknown source".
func (sentence Sentence) Media() string {
	if sentence.MediumName == nil {
		return unknownSource
	}
	return *sentence.MediumName
}

// Date returns the display publication date.
func (sentence Sentence) Date() string { return PublishedOn(sentence.PublishDate) }

// Story is one matching story.
type Story struct {
	StoryID     int64   `json:"stories_id"`
	Title       string  `json:"title,omitempty"`
	URL         string  `json:"url,omitempty"`
	MediaID     int     `json:"media_id,omitempty"`
	MediaName   string  `json:"media_name,omitempty"`
	PublishDate *string `json:"publish_date,omitempty"`
}

// Date returns the display publication date.
func (story Story) Date() string { return PublishedOn(story.PublishDate) }

// PublishedOn renders an upstream publish_date for display. Missing dates
// read "unknown date"; unparseable ones are returned as received.
func PublishedOn(raw *string) string {
	if raw == nil {
		return unknownDate
	}
	value := *raw
	if i := strings.IndexByte(value, 'T'); i >= 0 {
		value = value[:i]
	}

	layout := dayLayout
	if len(value) == len(publishLayout) {
		layout = publishLayout
	}
	parsed, err := time.Parse(layout, value)
	if err != nil {
		return *raw
	}
	return parsed.Format(displayLayout)
}

// # Decoders

func decodeDateCounts(body []byte) ([]DateCount, Totals, error) {
	counts, totals, err := DecodeList[DateCount](body)
	if err != nil {
		return nil, totals, err
	}
	for i := range counts {
		day := counts[i].Date
		if len(day) > len(dayLayout) {
			day = day[:len(dayLayout)]
		}
		parsed, err := time.ParseInLocation(dayLayout, day, time.UTC)
		if err != nil {
			return nil, totals, fmt.Errorf("results: date count %q: %w", counts[i].Date, err)
		}
		counts[i].Timestamp = parsed.UnixMilli()
	}
	return counts, totals, nil
}

func decodeSentences(body []byte) ([]Sentence, Totals, error) {
	var envelope struct {
		Total        *int       `json:"total"`
		TotalStories *int       `json:"totalStories"`
		Sentences    []Sentence `json:"sentences"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, Totals{}, fmt.Errorf("results: decode sentences: %w", err)
	}
	return envelope.Sentences, Totals{Total: envelope.Total, TotalStories: envelope.TotalStories}, nil
}

func decodeStories(body []byte) ([]Story, Totals, error) {
	var envelope struct {
		Total   *int    `json:"total"`
		Stories []Story `json:"stories"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, Totals{}, fmt.Errorf("results: decode stories: %w", err)
	}
	return envelope.Stories, Totals{Total: envelope.Total, TotalStories: envelope.Total}, nil
}

// # Endpoints

func paramEndpoint(name, prefix, csvSuffix string) Endpoint {
	return Endpoint{
		Name: name,
		URL:  func(params Params) string { return prefix + params.Path() },
		CSV:  func(params Params) string { return prefix + params.Path() + csvSuffix },
	}
}

func demoEndpoint(name, prefix, csvSuffix string) Endpoint {
	return Endpoint{
		Name: name,
		URL:  func(params Params) string { return prefix + params.KeywordPath() },
		CSV:  func(params Params) string { return prefix + params.KeywordPath() + csvSuffix },
	}
}

// # Constructors

// NewWordCounts serves /api/wordcount/{params}.
func NewWordCounts(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[WordCount] {
	return NewRemote[WordCount](paramEndpoint(WordCounts, "/api/wordcount/", "/csv"), DecodeList[WordCount], transport, params, logger)
}

// NewDateCounts serves /api/sentences/numfound/{params}.
func NewDateCounts(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[DateCount] {
	return NewRemote[DateCount](paramEndpoint(DateCounts, "/api/sentences/numfound/", "/csv"), decodeDateCounts, transport, params, logger)
}

// NewTagCounts serves /api/geotagcount/{params}.
func NewTagCounts(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[TagCount] {
	return NewRemote[TagCount](paramEndpoint(TagCounts, "/api/geotagcount/", ".csv"), DecodeList[TagCount], transport, params, logger)
}

// NewSentences serves /api/sentences/docs/{params}. The CSV export lists the
// stories behind the sentences.
func NewSentences(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[Sentence] {
	endpoint := Endpoint{
		Name: Sentences,
		URL:  func(params Params) string { return "/api/sentences/docs/" + params.Path() },
		CSV:  func(params Params) string { return "/api/stories/docs/" + params.Path() + ".csv" },
	}
	return NewRemote[Sentence](endpoint, decodeSentences, transport, params, logger)
}

// NewStories serves /api/stories/public/docs/{params}.
func NewStories(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[Story] {
	return NewRemote[Story](paramEndpoint(Stories, "/api/stories/public/docs/", ".csv"), decodeStories, transport, params, logger)
}

// # Demo Constructors
//
// Demo endpoints take the keywords alone.

// NewDemoWordCounts serves /api/demo/wordcount/{keywords}.
func NewDemoWordCounts(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[WordCount] {
	return NewRemote[WordCount](demoEndpoint(WordCounts, "/api/demo/wordcount/", "/csv"), DecodeList[WordCount], transport, params, logger)
}

// NewDemoDateCounts serves /api/demo/sentences/numfound/{keywords}.
func NewDemoDateCounts(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[DateCount] {
	return NewRemote[DateCount](demoEndpoint(DateCounts, "/api/demo/sentences/numfound/", "/csv"), decodeDateCounts, transport, params, logger)
}

// NewDemoTagCounts serves /api/demo/geotagcount/{keywords}.
func NewDemoTagCounts(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[TagCount] {
	return NewRemote[TagCount](demoEndpoint(TagCounts, "/api/demo/geotagcount/", ".csv"), DecodeList[TagCount], transport, params, logger)
}

// NewDemoSentences serves /api/demo/sentences/docs/{keywords}. Exports use
// the full story CSV.
func NewDemoSentences(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[Sentence] {
	endpoint := demoEndpoint(Sentences, "/api/demo/sentences/docs/", "")
	endpoint.CSV = func(params Params) string { return "/api/stories/docs/" + params.Path() + ".csv" }
	return NewRemote[Sentence](endpoint, decodeSentences, transport, params, logger)
}

// NewDemoStories serves /api/demo/stories/docs/{keywords}.
func NewDemoStories(transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[Story] {
	endpoint := demoEndpoint(Stories, "/api/demo/stories/docs/", "")
	endpoint.CSV = func(params Params) string { return "/api/stories/public/docs/" + params.Path() + ".csv" }
	return NewRemote[Story](endpoint, decodeStories, transport, params, logger)
}
