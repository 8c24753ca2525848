// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate collects field errors from service-layer input checks
// into one VALIDATION_ERROR [apperr.AppError].
//
//	err := (&validate.Validator{}).
//		Required("term", term).
//		MaxLen("term", term, 1000).
//		Err()
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taibuivan/mediameter/internal/platform/apperr"
)

// dateLayout is the calendar date format of dashboard paths.
const dateLayout = "2006-01-02"

// shortcodePattern accepts lowercase words joined by single hyphens.
var shortcodePattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ErrInvalidJSON answers a request body that does not decode.
var ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

// Validator accumulates failures; a zero Validator is ready to use. It is
// meant for one request and is not safe for concurrent use.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails on blank values.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(field, strings.TrimSpace(value) == "", "This field is required")
}

// MaxLen counts characters, not bytes.
func (v *Validator) MaxLen(field, value string, limit int) *Validator {
	return v.Custom(field, utf8.RuneCountInString(value) > limit, fmt.Sprintf("Maximum %d characters", limit))
}

// Date fails unless value is a YYYY-MM-DD calendar date.
func (v *Validator) Date(field, value string) *Validator {
	_, err := time.Parse(dateLayout, value)
	return v.Custom(field, err != nil, "Must be a date in YYYY-MM-DD format")
}

// DateRange fails when start falls after end. Unparsable dates are left for
// [Validator.Date] to report.
func (v *Validator) DateRange(field, start, end string) *Validator {
	from, startErr := time.Parse(dateLayout, start)
	to, endErr := time.Parse(dateLayout, end)
	return v.Custom(field, startErr == nil && endErr == nil && from.After(to), "Start date must not be after end date")
}

// Slug fails unless value is lowercase letters and digits joined by single
// hyphens, the shape of a saved search shortcode.
func (v *Validator) Slug(field, value string) *Validator {
	return v.Custom(field, !shortcodePattern.MatchString(value), "Must contain only lowercase letters, digits and single hyphens")
}

// Custom records message against field when failed is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
	}
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// Err ends a chain: nil when every rule passed.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// RequiredError builds a single-field validation error outside a chain.
func RequiredError(field, message string) *apperr.AppError {
	return apperr.ValidationError("Validation failed", apperr.FieldError{Field: field, Message: message})
}
