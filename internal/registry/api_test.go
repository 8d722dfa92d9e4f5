// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPIRegistry struct {
	handlers map[string]http.Handler
}

func (f *fakeAPIRegistry) Register(endpoint, summary, description string, handler http.Handler) error {
	if f.handlers == nil {
		f.handlers = map[string]http.Handler{}
	}
	f.handlers[endpoint] = handler
	return nil
}

func TestAPIAttach(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	api := NewAPI(r, quietLogger())

	fake := &fakeAPIRegistry{}
	require.NoError(t, api.Attach(fake))
	assert.Contains(t, fake.handlers, "/api/v1/services")
	assert.Contains(t, fake.handlers, "/api/v1/services/")
}

func TestAPIListServices(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	p, err := r.Adopt(4242, validSpec("web"))
	require.NoError(t, err)
	p.SetCurrentRSS(1000)
	p.SetPageFaults(3)

	api := NewAPI(r, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
	rec := httptest.NewRecorder()
	api.handleServices(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []serviceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "web", out[0].Name)
	assert.Equal(t, 4242, out[0].PID)
	assert.Equal(t, int64(1000), out[0].RSSPages)
	assert.Equal(t, int64(3), out[0].RecentPageFaults)
	assert.Equal(t, int64(200), out[0].ExpectedPeakMemory)
}

func TestAPIDeployService(t *testing.T) {
	t.Run("launches and reports the pid", func(t *testing.T) {
		r := NewRegistry(WithLogger(quietLogger()))
		api := NewAPI(r, quietLogger())

		body := `{"name":"sleeper","argv":["sleep","30"],"expectedTypicalMemory":100,"expectedPeakMemory":200,"value":1}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/services", strings.NewReader(body))
		rec := httptest.NewRecorder()
		api.handleServices(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var out serviceInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Greater(t, out.PID, 0)

		t.Cleanup(func() { _ = r.Shutdown() })
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		api := NewAPI(NewRegistry(WithLogger(quietLogger())), quietLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/services", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		api.handleServices(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid specs", func(t *testing.T) {
		api := NewAPI(NewRegistry(WithLogger(quietLogger())), quietLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/services", strings.NewReader(`{"name":"x"}`))
		rec := httptest.NewRecorder()
		api.handleServices(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects other methods", func(t *testing.T) {
		api := NewAPI(NewRegistry(WithLogger(quietLogger())), quietLogger())

		req := httptest.NewRequest(http.MethodPut, "/api/v1/services", nil)
		rec := httptest.NewRecorder()
		api.handleServices(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestAPIStopService(t *testing.T) {
	t.Run("stops a managed service", func(t *testing.T) {
		var signaled []int
		r := NewRegistry(
			WithLogger(quietLogger()),
			WithSignalFn(func(pid int, _ syscall.Signal) error {
				signaled = append(signaled, pid)
				return nil
			}),
		)
		_, err := r.Adopt(4242, validSpec("web"))
		require.NoError(t, err)

		api := NewAPI(r, quietLogger())
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/services/4242", nil)
		rec := httptest.NewRecorder()
		api.handleService(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []int{4242}, signaled)
	})

	t.Run("unknown pid", func(t *testing.T) {
		api := NewAPI(NewRegistry(WithLogger(quietLogger())), quietLogger())

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/services/99", nil)
		rec := httptest.NewRecorder()
		api.handleService(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad pid", func(t *testing.T) {
		api := NewAPI(NewRegistry(WithLogger(quietLogger())), quietLogger())

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/services/abc", nil)
		rec := httptest.NewRecorder()
		api.handleService(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
