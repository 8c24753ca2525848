// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mediameter/internal/upstream"
)

/*
TestClient_GetJSON verifies that a 2xx body is decoded and the escaped path
reaches the server untouched.
*/
func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/wordcount/%20/%7B%7D/%2A/%2A", r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total": 3}`))
	}))
	defer server.Close()

	client := upstream.NewClient(upstream.Config{BaseURL: server.URL + "/"}, nil)

	var out struct {
		Total int `json:"total"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "/api/wordcount/%20/%7B%7D/%2A/%2A", &out))
	assert.Equal(t, 3, out.Total)
}

/*
TestClient_StatusError verifies non-2xx responses map to StatusError.
*/
func TestClient_StatusError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		notFound bool
	}{
		{name: "not found", status: http.StatusNotFound, notFound: true},
		{name: "server error", status: http.StatusBadGateway, notFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client := upstream.NewClient(upstream.Config{BaseURL: server.URL}, nil)
			_, err := client.Get(context.Background(), "/x")
			require.Error(t, err)

			var statusErr *upstream.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.Status)
			assert.Equal(t, tt.notFound, upstream.IsNotFound(err))
		})
	}
}

/*
TestClient_ThrottleHonoursContext verifies that a request waiting for a rate
token gives up when its context ends.
*/
func TestClient_ThrottleHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := upstream.NewClient(upstream.Config{BaseURL: server.URL, RPS: 0.001, Burst: 1}, nil)

	_, err := client.Get(context.Background(), "/first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Get(ctx, "/second")
	assert.Error(t, err)
}
