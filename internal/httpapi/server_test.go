package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inferd/internal/status"
	"inferd/pkg/types"
)

type mockService struct {
	live      bool
	ready     bool
	models    map[string][]int64
	loadErr   error
	unloadErr error
	loaded    []string
	unloaded  []string
	status    types.StatusResponse
}

func (m *mockService) ID() string           { return "inferd-test" }
func (m *mockService) Version() string      { return "0.0.0" }
func (m *mockService) Extensions() []string { return []string{"health", "models"} }
func (m *mockService) IsLive() bool         { return m.live }
func (m *mockService) IsReady() bool        { return m.ready }
func (m *mockService) ModelIsReady(name string, version int64) bool {
	versions, ok := m.models[name]
	if !ok {
		return false
	}
	if version <= 0 {
		return len(versions) > 0
	}
	for _, v := range versions {
		if v == version {
			return true
		}
	}
	return false
}
func (m *mockService) ModelReadyVersions(name string) []int64 { return m.models[name] }
func (m *mockService) LoadModel(name string) error {
	m.loaded = append(m.loaded, name)
	return m.loadErr
}
func (m *mockService) UnloadModel(name string) error {
	m.unloaded = append(m.unloaded, name)
	return m.unloadErr
}
func (m *mockService) Status() types.StatusResponse { return m.status }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func post(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	return w
}

func TestServerMetadata(t *testing.T) {
	r := NewMux(&mockService{})
	w := get(t, r, "/v2")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body struct {
		Name       string   `json:"name"`
		Version    string   `json:"version"`
		Extensions []string `json:"extensions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Name != "inferd-test" || len(body.Extensions) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHealthLive(t *testing.T) {
	r := NewMux(&mockService{live: true})
	if w := get(t, r, "/v2/health/live"); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	r = NewMux(&mockService{live: false})
	if w := get(t, r, "/v2/health/live"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestHealthReady(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	if w := get(t, r, "/v2/health/ready"); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	r = NewMux(&mockService{ready: false})
	if w := get(t, r, "/v2/health/ready"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestModelReady(t *testing.T) {
	svc := &mockService{models: map[string][]int64{"m": {1, 3}}}
	r := NewMux(svc)
	if w := get(t, r, "/v2/models/m/ready"); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w := get(t, r, "/v2/models/m/versions/3/ready"); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w := get(t, r, "/v2/models/m/versions/2/ready"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if w := get(t, r, "/v2/models/nope/ready"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if w := get(t, r, "/v2/models/m/versions/abc/ready"); w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestModelVersions(t *testing.T) {
	svc := &mockService{models: map[string][]int64{"m": {1, 3}}}
	r := NewMux(svc)
	w := get(t, r, "/v2/models/m/versions")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body struct {
		Name     string  `json:"name"`
		Versions []int64 `json:"versions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Name != "m" || len(body.Versions) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if w := get(t, r, "/v2/models/nope/versions"); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestRepositoryLoadUnload(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	if w := post(t, r, "/v2/repository/models/m/load"); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w := post(t, r, "/v2/repository/models/m/unload"); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if len(svc.loaded) != 1 || svc.loaded[0] != "m" || len(svc.unloaded) != 1 {
		t.Fatalf("service calls not recorded: %+v", svc)
	}
}

func TestStatusErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{status.InvalidArgf("bad"), http.StatusBadRequest},
		{status.NotFoundf("missing"), http.StatusNotFound},
		{status.AlreadyExistsf("dup"), http.StatusConflict},
		{status.Unavailablef("later"), http.StatusServiceUnavailable},
		{status.Internalf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := NewMux(&mockService{loadErr: tc.err})
		w := post(t, r, "/v2/repository/models/m/load")
		if w.Code != tc.want {
			t.Fatalf("err %v: status=%d want %d", tc.err, w.Code, tc.want)
		}
		var body types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if body.Code != tc.want || body.Error == "" {
			t.Fatalf("unexpected error body: %+v", body)
		}
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{ID: "x", State: "ready", InflightRequests: 2}}
	r := NewMux(svc)
	w := get(t, r, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.ID != "x" || body.State != "ready" || body.InflightRequests != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewMux(&mockService{})
	w := get(t, r, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}
