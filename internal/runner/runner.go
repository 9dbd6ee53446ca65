package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Agrid-Dev/heatroom/internal/ports"
	"github.com/Agrid-Dev/heatroom/internal/simulation"
)

type Config struct {
	Session  string
	Geometry string
	Interval time.Duration
}

// Runner drives a session autonomously: it loads the configured room
// geometry, resets the session and then advances it on a fixed interval.
type Runner struct {
	svc   ports.SimulationService
	store ports.GeometryStore
	cfg   Config
}

func New(svc ports.SimulationService, store ports.GeometryStore, cfg Config) (*Runner, error) {
	if cfg.Session == "" {
		return nil, errors.New("runner: Session is required")
	}
	if cfg.Geometry == "" {
		return nil, errors.New("runner: Geometry is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Second
	}
	return &Runner{svc: svc, store: store, cfg: cfg}, nil
}

func (r *Runner) Run(ctx context.Context) error {
	poly, err := r.store.Load(r.cfg.Geometry)
	if err != nil {
		return fmt.Errorf("runner: load geometry %q: %w", r.cfg.Geometry, err)
	}
	if _, err := r.svc.Reset(r.cfg.Session, poly); err != nil {
		return fmt.Errorf("runner: reset %q: %w", r.cfg.Session, err)
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.svc.Step(r.cfg.Session); err != nil {
				// An unstable parameter set would fail every tick; stop
				// instead of spinning. Anything else is transient.
				if errors.Is(err, simulation.ErrUnstable) {
					return fmt.Errorf("runner: step %q: %w", r.cfg.Session, err)
				}
				log.Printf("runner: step %q: %v", r.cfg.Session, err)
			}
		}
	}
}
