package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Agrid-Dev/heatroom/internal/ports"
)

type Config struct {
	// Identity: the session this controller drives and publishes.
	Session string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainState     bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc   ports.SimulationService
	store ports.GeometryStore
	cfg   Config

	client mqtt.Client
}

func New(svc ports.SimulationService, store ports.GeometryStore, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.Session == "" {
		return nil, errors.New("mqtt: Session is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "heatroom/" + cfg.Session
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "heatroom-" + cfg.Session
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc:   svc,
		store: store,
		cfg:   cfg,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		// Subscribe to all commands under BaseTopic.
		topic := c.topic("cmd/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		// If subscribe fails, paho exposes token.Error().
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish the session state on interval, only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	var last stateDTO
	first := true

	// publish immediately once
	if dto, ok := c.publishState(); ok {
		last = dto
		first = false
	}

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur, ok := c.currentState()
			if !ok {
				continue
			}
			if first || cur != last {
				c.publishState()
				last = cur
				first = false
			}
		}
	}
}

// stateDTO is the compact telemetry payload: the field summary, not the
// full grid (websocket streaming carries the grid).
type stateDTO struct {
	SessionID string  `json:"session_id"`
	Steps     int     `json:"steps"`
	Rows      int     `json:"rows"`
	Cols      int     `json:"cols"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
}

func (c *Controller) currentState() (stateDTO, bool) {
	snap, err := c.svc.Current(c.cfg.Session)
	if err != nil {
		return stateDTO{}, false
	}
	return stateDTO{
		SessionID: c.cfg.Session,
		Steps:     snap.Steps,
		Rows:      snap.Rows,
		Cols:      snap.Cols,
		Min:       snap.Stats.Min,
		Max:       snap.Stats.Max,
		Mean:      snap.Stats.Mean,
	}, true
}

func (c *Controller) publishState() (stateDTO, bool) {
	dto, ok := c.currentState()
	if !ok {
		return stateDTO{}, false
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("state"), c.cfg.QoS, c.cfg.RetainState, b)
	return dto, true
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/cmd/<command>
	t := msg.Topic()
	prefix := c.cfg.BaseTopic + "/cmd/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	command := strings.TrimPrefix(t, prefix)

	payload := msg.Payload()

	// Dispatch by command; service errors are logged, never fatal.
	switch command {
	case "step":
		n, err := decodeValueStrict[int](payload)
		if err != nil || n < 1 {
			return
		}
		for i := 0; i < n; i++ {
			if _, err := c.svc.Step(c.cfg.Session); err != nil {
				log.Printf("mqtt: step %q: %v", c.cfg.Session, err)
				return
			}
		}
		c.publishState()

	case "reset":
		name, err := decodeValueStrict[string](payload)
		if err != nil {
			return
		}
		poly, err := c.store.Load(name)
		if err != nil {
			log.Printf("mqtt: load geometry %q: %v", name, err)
			return
		}
		if _, err := c.svc.Reset(c.cfg.Session, poly); err != nil {
			log.Printf("mqtt: reset %q: %v", c.cfg.Session, err)
			return
		}
		c.publishState()
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
