package service

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthzHandle(t *testing.T) {
	h := &HealthzServer{}

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	_, ok := body["run_state"]
	assert.False(t, ok)
}

func TestHealthzHandleReportsRunState(t *testing.T) {
	h := &HealthzServer{StateSource: func() string { return "annotating" }}

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest("GET", "/healthz", nil))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "annotating", body["run_state"])
}
