// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package savedsearch_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mediameter/internal/platform/middleware"
	"github.com/taibuivan/mediameter/internal/platform/sec"
	"github.com/taibuivan/mediameter/internal/savedsearch"
)

// staticVerifier maps bearer tokens to fixed sessions.
type staticVerifier map[string]*sec.SessionClaims

func (v staticVerifier) VerifyToken(token string) (*sec.SessionClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, errors.New("unknown token")
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	service, _ := newService("a1b2c3", "d4e5f6")

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(staticVerifier{
		"admin":  {UserID: "admin-1", Role: string(sec.RoleAdmin)},
		"member": {UserID: "member-1", Role: string(sec.RoleMember)},
	}))
	router.Mount("/api/v1/queries", savedsearch.NewHandler(service, "https://mediameter.app").Routes())

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	request, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	var payload map[string]any
	if response.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(response.Body).Decode(&payload))
	}
	return response, payload
}

/*
TestHandler_Lifecycle walks create, lookup, list and delete over HTTP.
*/
func TestHandler_Lifecycle(t *testing.T) {
	server := newServer(t)
	base := server.URL + "/api/v1/queries"

	response, payload := do(t, http.MethodPost, base+"/", "member", `{"name": "Rain", "path": "`+validPath+`"}`)
	require.Equal(t, http.StatusCreated, response.StatusCode)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "rain-a1b2c3", data["shortcode"])
	assert.Equal(t, "https://mediameter.app/q/rain-a1b2c3", data["short_url"])
	assert.Equal(t, "member-1", data["created_by"])

	response, payload = do(t, http.MethodGet, base+"/rain-a1b2c3", "", "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, validPath, payload["data"].(map[string]any)["path"])

	response, payload = do(t, http.MethodGet, base+"/list?limit=10", "", "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Len(t, payload["data"], 1)
	assert.EqualValues(t, 1, payload["meta"].(map[string]any)["total"])

	response, _ = do(t, http.MethodDelete, base+"/rain-a1b2c3", "", "")
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

	response, _ = do(t, http.MethodDelete, base+"/rain-a1b2c3", "member", "")
	assert.Equal(t, http.StatusForbidden, response.StatusCode)

	response, _ = do(t, http.MethodDelete, base+"/rain-a1b2c3", "admin", "")
	assert.Equal(t, http.StatusNoContent, response.StatusCode)

	response, payload = do(t, http.MethodGet, base+"/rain-a1b2c3", "", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, "NOT_FOUND", payload["code"])
}

/*
TestHandler_CreateRejectsBadInput covers malformed bodies and bad tokens.
*/
func TestHandler_CreateRejectsBadInput(t *testing.T) {
	server := newServer(t)
	base := server.URL + "/api/v1/queries/"

	response, payload := do(t, http.MethodPost, base, "", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", payload["code"])

	response, payload = do(t, http.MethodPost, base, "", `{"name": "x", "path": "elsewhere"}`)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Len(t, payload["details"], 1)

	response, _ = do(t, http.MethodPost, base, "forged", `{"name": "x", "path": "`+validPath+`"}`)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
}
