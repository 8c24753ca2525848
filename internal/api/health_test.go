// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mediameter/internal/api"
)

func probe(t *testing.T, handler http.HandlerFunc) (int, map[string]any) {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var payload struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&payload))
	return recorder.Code, payload.Data
}

/*
TestHealth_Liveness verifies that the liveness probe always answers ok.
*/
func TestHealth_Liveness(t *testing.T) {
	liveness, _ := api.NewHealthHandlers(api.HealthDependencies{}, slog.Default())

	status, data := probe(t, liveness)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "mediameter-api", data["app"])
}

/*
TestHealth_Readiness describes the probe for healthy and failing
dependencies.
*/
func TestHealth_Readiness(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		deps       api.HealthDependencies
		wantStatus int
		wantState  string
		wantChecks int
	}{
		{
			name:       "all healthy",
			deps:       api.HealthDependencies{CheckDatabase: healthy, CheckCache: healthy},
			wantStatus: http.StatusOK,
			wantState:  "ready",
			wantChecks: 2,
		},
		{
			name:       "redis down",
			deps:       api.HealthDependencies{CheckDatabase: healthy, CheckCache: failing},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
			wantChecks: 2,
		},
		{
			name:       "no checks configured",
			deps:       api.HealthDependencies{},
			wantStatus: http.StatusOK,
			wantState:  "ready",
			wantChecks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, readiness := api.NewHealthHandlers(tt.deps, slog.Default())

			status, data := probe(t, readiness)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantState, data["status"])
			assert.Len(t, data["checks"], tt.wantChecks)
		})
	}
}
