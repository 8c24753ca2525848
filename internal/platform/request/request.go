// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mediameter/internal/platform/apperr"
	"github.com/taibuivan/mediameter/internal/platform/ctxutil"
	"github.com/taibuivan/mediameter/internal/platform/sec"
	"github.com/taibuivan/mediameter/internal/platform/validate"
)

// maxBodyBytes bounds JSON request bodies; dashboard paths are small.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter, used to bound the body size
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
TailPath returns the last n segments of the request path, still escaped.

Dashboard segments are percent-encoded JSON arrays that may contain an
encoded "/". Route parameters are decoded inconsistently depending on
whether the client escaping matches Go's, so the escaped path is read
directly.

Returns:
  - string: the segments joined by "/"
  - error: apperr.ValidationError if the path has fewer than n segments
*/
func TailPath(request *http.Request, n int) (string, error) {
	parts := strings.Split(strings.Trim(request.URL.EscapedPath(), "/"), "/")
	if len(parts) < n {
		return "", validate.RequiredError("path", "Incomplete dashboard path")
	}
	return strings.Join(parts[len(parts)-n:], "/"), nil
}

/*
IntParam retrieves a named URL parameter as a positive integer.

Returns:
  - int: the parsed value
  - error: apperr.ValidationError if the parameter is not a positive integer
*/
func IntParam(request *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(request, name))
	if err != nil || value < 1 {
		return 0, validate.RequiredError(name, "Must be a positive integer")
	}
	return value, nil
}

/*
Session extracts the verified session claims from the request context.

Returns nil if the request is anonymous.
*/
func Session(request *http.Request) *sec.SessionClaims {
	return ctxutil.GetSession(request.Context())
}

/*
RequiredSession ensures the request carries a session.

Returns:
  - *sec.SessionClaims: The verified claims
  - error: apperr.Unauthorized if the request is anonymous
*/
func RequiredSession(request *http.Request) (*sec.SessionClaims, error) {
	claims := ctxutil.GetSession(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}
