package httpctrl

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Agrid-Dev/heatroom/internal/geometry"
	"github.com/Agrid-Dev/heatroom/internal/simulation"
	"github.com/Agrid-Dev/heatroom/internal/testutil"
)

func TestGET_geometries(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/geometries", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[map[string][]string](t, rr)
	if len(got["geometries"]) != 1 || got["geometries"][0] != "square" {
		t.Fatalf("expected [square], got %v", got["geometries"])
	}
}

func TestGET_geometry_ByName(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/geometries/square", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[struct {
		Name   string      `json:"name"`
		Points [][]float64 `json:"points"`
	}](t, rr)
	if got.Name != "square" {
		t.Fatalf("expected name=square, got %q", got.Name)
	}
	if len(got.Points) != 4 {
		t.Fatalf("expected 4 points, got %v", got.Points)
	}
}

func TestGET_geometry_NotFound(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/geometries/missing", nil)
	assertStatus(t, rr, http.StatusNotFound)
	_ = assertErrorResponse(t, rr)
}

func TestGET_sessions(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/sessions", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[map[string][]string](t, rr)
	if len(got["sessions"]) != 1 || got["sessions"][0] != "default" {
		t.Fatalf("expected [default], got %v", got["sessions"])
	}
}

func TestGET_session_Snapshot(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/sessions/default", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[snapshotDTO](t, rr)
	if got.SessionID != "default" || got.Rows != 21 || got.Cols != 21 {
		t.Fatalf("unexpected snapshot header: %+v", got)
	}
	if got.Grid[10][10] != 100 {
		t.Fatalf("expected source cell 100, got %v", got.Grid[10][10])
	}
	if got.Stats.Max != 100 {
		t.Fatalf("expected stats.max 100, got %v", got.Stats.Max)
	}
}

func TestGET_session_NotInitialized(t *testing.T) {
	srv, svc, _ := newTestServer()
	svc.CurrentErr = simulation.ErrNotInitialized

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/sessions/default", nil)
	assertStatus(t, rr, http.StatusConflict)
	_ = assertErrorResponse(t, rr)
}

func TestPOST_simulate(t *testing.T) {
	srv, svc, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/sessions/office/simulate", map[string]any{
		"geometry": [][]float64{{0, 0}, {2, 0}, {2, 2}, {0, 2}},
		"reset":    true,
	})
	assertStatus(t, rr, http.StatusOK)

	if !svc.SimulateCalled || svc.SimulateID != "office" || !svc.SimulateReset {
		t.Fatalf("expected Simulate(office, reset=true), got called=%v id=%q reset=%v",
			svc.SimulateCalled, svc.SimulateID, svc.SimulateReset)
	}
	if len(svc.SimulatePoly) != 4 {
		t.Fatalf("expected 4-point polygon, got %v", svc.SimulatePoly)
	}

	got := decodeJSON[snapshotDTO](t, rr)
	if got.Steps != 1 {
		t.Fatalf("expected steps=1, got %d", got.Steps)
	}
}

func TestPOST_simulate_InvalidJSON(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/sessions/office/simulate", "{broken")
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
}

func TestPOST_simulate_GeometryError(t *testing.T) {
	srv, svc, _ := newTestServer()
	svc.SimulateErr = geometry.ErrTooFewPoints

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/sessions/office/simulate", map[string]any{
		"geometry": [][]float64{{0, 0}, {1, 1}},
		"reset":    true,
	})
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
}

func TestPOST_step(t *testing.T) {
	srv, svc, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/sessions/default/step", nil)
	assertStatus(t, rr, http.StatusOK)

	if len(svc.StepCalls) != 1 || svc.StepCalls[0] != "default" {
		t.Fatalf("expected Step(default), got %v", svc.StepCalls)
	}
}

func TestPOST_step_Unstable(t *testing.T) {
	srv, svc, _ := newTestServer()
	svc.StepErr = simulation.ErrUnstable

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/sessions/default/step", nil)
	assertStatus(t, rr, http.StatusUnprocessableEntity)
	_ = assertErrorResponse(t, rr)
}

func TestPOST_step_UnknownSession(t *testing.T) {
	srv, svc, _ := newTestServer()
	svc.StepErr = simulation.ErrSessionNotFound

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/sessions/ghost/step", nil)
	assertStatus(t, rr, http.StatusNotFound)
	_ = assertErrorResponse(t, rr)
}

func TestPOST_reset(t *testing.T) {
	srv, svc, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/sessions/office/reset", map[string]any{
		"geometry": [][]float64{{0, 0}, {2, 0}, {2, 2}, {0, 2}},
	})
	assertStatus(t, rr, http.StatusOK)

	if !svc.ResetCalled || svc.ResetID != "office" {
		t.Fatalf("expected Reset(office), got called=%v id=%q", svc.ResetCalled, svc.ResetID)
	}
	got := decodeJSON[snapshotDTO](t, rr)
	if got.Steps != 0 {
		t.Fatalf("expected steps=0 after reset, got %d", got.Steps)
	}
}

func TestPOST_source_temperature(t *testing.T) {
	srv, svc, _ := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/sessions/default/sources/0/temperature", 42.5)
	assertStatus(t, rr, http.StatusOK)

	if !svc.SetSourceCalled || svc.SetSourceIndex != 0 || svc.SetSourceTemp != 42.5 {
		t.Fatalf("expected SetSourceTemperature(default, 0, 42.5), got called=%v index=%d temp=%v",
			svc.SetSourceCalled, svc.SetSourceIndex, svc.SetSourceTemp)
	}
}

func TestPOST_source_temperature_MissingValue(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/sessions/default/sources/0/temperature", map[string]any{
		"temp": 42.5,
	})
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
}

func TestPOST_source_temperature_BadIndex(t *testing.T) {
	srv, svc, _ := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/sessions/default/sources/nope/temperature", 42.5)
	assertStatus(t, rr, http.StatusBadRequest)
	if svc.SetSourceCalled {
		t.Fatal("expected SetSourceTemperature not called")
	}
}

func TestPOST_source_temperature_IndexOutOfRange(t *testing.T) {
	srv, svc, _ := newTestServer()
	svc.SetSourceErr = simulation.ErrSourceIndex

	rr := postValueEndpoint(t, srv, "/v1/sessions/default/sources/9/temperature", 42.5)
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
}

func TestDELETE_session(t *testing.T) {
	srv, svc, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodDelete, "/v1/sessions/default", nil)
	assertStatus(t, rr, http.StatusNoContent)
	if len(svc.DropCalls) != 1 || svc.DropCalls[0] != "default" {
		t.Fatalf("expected Drop(default), got %v", svc.DropCalls)
	}
}

func TestDELETE_session_NotFound(t *testing.T) {
	srv, svc, _ := newTestServer()
	svc.DropErr = simulation.ErrSessionNotFound

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodDelete, "/v1/sessions/ghost", nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestGET_healthz(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)

	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "ok" {
		t.Fatalf("expected body 'ok', got %s", rr.Body.String())
	}
}

// ---- test helpers ----

func newTestServer() (*Server, *testutil.FakeSimulationService, *testutil.FakeGeometryStore) {
	svc := testutil.NewFakeSimulationService()
	store := testutil.NewFakeGeometryStore()
	return New(svc, store, ":0"), svc, store
}

func doJSONRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else if raw, ok := body.(string); ok {
		r = httptest.NewRequest(method, path, bytes.NewReader([]byte(raw)))
		r.Header.Set("Content-Type", "application/json")
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal: %v", err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("json.Unmarshal: %v body=%s", err, rr.Body.String())
	}
	return v
}

// Handy when you only care about error responses.
func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeJSON[struct {
		Error string `json:"error"`
	}](t, rr)
	if resp.Error == "" {
		t.Fatalf("expected non-empty error field, got body=%s", rr.Body.String())
	}
	return resp.Error
}

func postValueEndpoint[T any](t *testing.T, srv *Server, path string, value T) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONRequest(t, srv.srv.Handler, http.MethodPost, path, struct {
		Value T `json:"value"`
	}{Value: value})
}
