package wsctrl

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Agrid-Dev/heatroom/internal/ports"
	"github.com/Agrid-Dev/heatroom/internal/simulation"
)

type Config struct {
	Addr            string
	PublishInterval time.Duration
}

// Controller streams session snapshots to websocket clients: one hub per
// session, fed by a single ticker polling the simulation service.
type Controller struct {
	svc ports.SimulationService
	cfg Config
	srv *http.Server

	mu   sync.Mutex
	hubs map[string]*hub
}

func New(svc ports.SimulationService, cfg Config) *Controller {
	// ---- defaults ----
	if cfg.Addr == "" {
		cfg.Addr = ":8081"
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 500 * time.Millisecond
	}
	return &Controller{
		svc:  svc,
		cfg:  cfg,
		hubs: make(map[string]*hub),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

func (c *Controller) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream", c.handleStream)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (c *Controller) handleStream(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		http.Error(w, "missing 'session' query parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}

	h := c.getHub(session)
	cl := &client{hub: h, conn: conn, send: make(chan []byte, 16)}
	h.register <- cl

	go cl.writePump()
	go cl.readPump()
}

func (c *Controller) Run(ctx context.Context) error {
	c.srv = &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           c.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := c.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()
	defer c.stopHubs()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.srv.Shutdown(shutdownCtx)
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-ticker.C:
			c.publishAll()
		}
	}
}

// publishAll pushes the current snapshot of every streamed session to its
// hub. Sessions that are not initialized yet simply have nothing to stream.
func (c *Controller) publishAll() {
	for _, h := range c.snapshotHubs() {
		snap, err := c.svc.Current(h.session)
		if err != nil {
			if !errors.Is(err, simulation.ErrNotInitialized) && !errors.Is(err, simulation.ErrSessionNotFound) {
				log.Printf("ws: current %q: %v", h.session, err)
			}
			continue
		}
		b, err := json.Marshal(toDTO(h.session, snap))
		if err != nil {
			log.Printf("ws: marshal %q: %v", h.session, err)
			continue
		}
		select {
		case h.broadcast <- b:
		case <-h.stop:
		}
	}
}

func (c *Controller) getHub(session string) *hub {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.hubs[session]
	if !ok {
		h = newHub(session)
		c.hubs[session] = h
		go h.run()
	}
	return h
}

func (c *Controller) snapshotHubs() []*hub {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*hub, 0, len(c.hubs))
	for _, h := range c.hubs {
		out = append(out, h)
	}
	return out
}

func (c *Controller) stopHubs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for session, h := range c.hubs {
		close(h.stop)
		delete(c.hubs, session)
	}
}

// ---- DTO ----

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
