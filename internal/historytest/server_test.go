package historytest

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/reader/internal/gateway"
)

func TestServer_GetUnknownDocument(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	resp, err := gateway.New(srv.URL()).Do(context.Background(), http.MethodGet, "/history/get/nope", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data":"","version":0}`, resp.Text())
}

func TestServer_SetBumpsVersion(t *testing.T) {
	srv := NewServer()
	defer srv.Close()
	srv.Seed("abc", "loc-5", 3)

	gw := gateway.New(srv.URL())
	resp, err := gw.Do(context.Background(), http.MethodPost, "/history/set/abc", map[string]any{
		"data": "loc-9", "version": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	assert.Equal(t, int64(4), body.Version)

	data, version, ok := srv.Position("abc")
	assert.True(t, ok)
	assert.Equal(t, "loc-9", data)
	assert.Equal(t, int64(4), version)
}

func TestServer_SetRejectsStaleVersion(t *testing.T) {
	srv := NewServer()
	defer srv.Close()
	srv.Seed("abc", "loc-5", 3)

	resp, err := gateway.New(srv.URL()).Do(context.Background(), http.MethodPost, "/history/set/abc", map[string]any{
		"data": "loc-1", "version": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	data, version, _ := srv.Position("abc")
	assert.Equal(t, "loc-5", data)
	assert.Equal(t, int64(3), version)
}

func TestServer_SetRejectsEmptyData(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	resp, err := gateway.New(srv.URL()).Do(context.Background(), http.MethodPost, "/history/set/abc", map[string]any{
		"data": "",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServer_InjectedFailures(t *testing.T) {
	srv := NewServer()
	defer srv.Close()
	srv.FailGets(1, http.StatusServiceUnavailable, "down")
	srv.FailSets(1, http.StatusBadGateway, "bad gateway")

	gw := gateway.New(srv.URL())

	resp, err := gw.Do(context.Background(), http.MethodGet, "/history/get/abc", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "down", resp.Text())

	resp, err = gw.Do(context.Background(), http.MethodGet, "/history/get/abc", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = gw.Do(context.Background(), http.MethodPost, "/history/set/abc", map[string]any{"data": "x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	assert.Len(t, srv.Requests(), 3)
	assert.Len(t, srv.Sets(), 1)
}
