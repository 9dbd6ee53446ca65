package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Agrid-Dev/heatroom/internal/geometry"
	"github.com/Agrid-Dev/heatroom/internal/ports"
	"github.com/Agrid-Dev/heatroom/internal/simulation"
)

type Server struct {
	svc   ports.SimulationService
	store ports.GeometryStore
	srv   *http.Server
}

// New returns a runnable server.
func New(svc ports.SimulationService, store ports.GeometryStore, addr string) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, store: store}

	// Geometry catalogue
	mux.HandleFunc("GET /v1/geometries", s.handleListGeometries)
	mux.HandleFunc("GET /v1/geometries/{name}", s.handleGetGeometry)

	// Sessions
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /v1/sessions/{id}/simulate", s.handleSimulate)
	mux.HandleFunc("POST /v1/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /v1/sessions/{id}/step", s.handleStep)
	mux.HandleFunc("POST /v1/sessions/{id}/sources/{index}/temperature", s.handlePostSourceTemperature)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type statsDTO struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

type snapshotDTO struct {
	SessionID string      `json:"session_id"`
	Steps     int         `json:"steps"`
	Rows      int         `json:"rows"`
	Cols      int         `json:"cols"`
	CellSize  float64     `json:"cell_size"`
	Origin    [2]float64  `json:"origin"`
	Grid      [][]float64 `json:"grid"`
	Stats     statsDTO    `json:"stats"`
}

func toDTO(id string, snap simulation.Snapshot) snapshotDTO {
	return snapshotDTO{
		SessionID: id,
		Steps:     snap.Steps,
		Rows:      snap.Rows,
		Cols:      snap.Cols,
		CellSize:  snap.CellSize,
		Origin:    [2]float64{snap.Origin.X, snap.Origin.Y},
		Grid:      snap.Grid,
		Stats:     statsDTO{Min: snap.Stats.Min, Max: snap.Stats.Max, Mean: snap.Stats.Mean},
	}
}

// ---- Handlers ----

func (s *Server) handleListGeometries(w http.ResponseWriter, _ *http.Request) {
	names, err := s.store.List()
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"geometries": names})
}

func (s *Server) handleGetGeometry(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	poly, err := s.store.Load(name)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Name   string           `json:"name"`
		Points geometry.Polygon `json:"points"`
	}{Name: name, Points: poly})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.svc.Sessions()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.svc.Current(id)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(id, snap))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Geometry geometry.Polygon `json:"geometry"`
		Reset    bool             `json:"reset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	snap, err := s.svc.Simulate(id, req.Geometry, req.Reset)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(id, snap))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Geometry geometry.Polygon `json:"geometry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	snap, err := s.svc.Reset(id, req.Geometry)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(id, snap))
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.svc.Step(id)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(id, snap))
}

func (s *Server) handlePostSourceTemperature(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeErr(w, http.StatusBadRequest, "invalid source index")
		return
	}

	postValue(w, r, func(v float64) (snapshotDTO, error) {
		snap, err := s.svc.SetSourceTemperature(id, index, v)
		if err != nil {
			return snapshotDTO{}, err
		}
		return toDTO(id, snap), nil
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Drop(r.PathValue("id")); err != nil {
		writeServiceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- generic helpers ----

// postValue decodes the {"value": ...} command payload, applies it and
// writes the resulting snapshot.
func postValue[T any](w http.ResponseWriter, r *http.Request, apply func(T) (snapshotDTO, error)) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	dto, err := apply(*req.Value)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// statusFor maps service errors onto status codes: unknown names and
// sessions are 404, stepping an empty session is a conflict, an unstable
// configuration is unprocessable, everything else the caller sent is a 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, geometry.ErrNotFound), errors.Is(err, simulation.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, simulation.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, simulation.ErrUnstable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, geometry.ErrTooFewPoints),
		errors.Is(err, geometry.ErrZeroArea),
		errors.Is(err, geometry.ErrBadName),
		errors.Is(err, simulation.ErrSourceIndex),
		errors.Is(err, simulation.ErrInvalidCellSize),
		errors.Is(err, simulation.ErrInvalidTimeStep),
		errors.Is(err, simulation.ErrNegativeDiffusivity),
		errors.Is(err, simulation.ErrNegativeConvection),
		errors.Is(err, simulation.ErrInvalidDirection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceErr(w http.ResponseWriter, err error) {
	writeErr(w, statusFor(err), err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
