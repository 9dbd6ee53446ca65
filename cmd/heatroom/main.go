package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Agrid-Dev/heatroom/cmd/app"
	httpctrl "github.com/Agrid-Dev/heatroom/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/heatroom/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/heatroom/internal/controllers/mqtt"
	wsctrl "github.com/Agrid-Dev/heatroom/internal/controllers/ws"
	"github.com/Agrid-Dev/heatroom/internal/geometry"
	"github.com/Agrid-Dev/heatroom/internal/runner"
	"github.com/Agrid-Dev/heatroom/internal/simulation"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	params, err := cfg.SimulationParams()
	if err != nil {
		log.Fatal(err)
	}

	store := geometry.NewStore(cfg.Geometry.DataDir)
	mgr, err := simulation.NewManager(params)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Each controller runs until ctx ends; the first hard failure takes the
	// whole service down.
	errCh := make(chan error, 8)
	run := func(name string, fn func(context.Context) error) {
		go func() {
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("%s exited: %v", name, err)
				errCh <- err
				return
			}
			errCh <- nil
		}()
	}

	started := 0

	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(mgr, store, cfg.Controllers.HTTP.Addr)
		log.Printf("http listening on %s", cfg.Controllers.HTTP.Addr)
		run("http", srv.Run)
		started++
	}

	if cfg.Controllers.WS.Enabled {
		c := wsctrl.New(mgr, wsctrl.Config{
			Addr:            cfg.Controllers.WS.Addr,
			PublishInterval: cfg.Controllers.WS.PublishInterval,
		})
		log.Printf("ws listening on %s", cfg.Controllers.WS.Addr)
		run("ws", c.Run)
		started++
	}

	if cfg.Controllers.MQTT.Enabled {
		c, err := mqttctrl.New(mgr, store, mqttctrl.Config{
			Session:         cfg.Controllers.MQTT.Session,
			BrokerURL:       cfg.Controllers.MQTT.BrokerURL,
			ClientID:        cfg.Controllers.MQTT.ClientID,
			BaseTopic:       cfg.Controllers.MQTT.BaseTopic,
			QoS:             cfg.Controllers.MQTT.QoS,
			RetainState:     cfg.Controllers.MQTT.RetainState,
			PublishInterval: cfg.Controllers.MQTT.PublishInterval,
			Username:        cfg.Controllers.MQTT.Username,
			Password:        cfg.Controllers.MQTT.Password,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("mqtt publishing to %s", cfg.Controllers.MQTT.BrokerURL)
		run("mqtt", c.Run)
		started++
	}

	if cfg.Controllers.Modbus.Enabled {
		probes := make([]modbusctrl.Probe, 0, len(cfg.Controllers.Modbus.Probes))
		for _, p := range cfg.Controllers.Modbus.Probes {
			probes = append(probes, modbusctrl.Probe{X: p.X, Y: p.Y})
		}
		c, err := modbusctrl.New(mgr, modbusctrl.Config{
			Session: cfg.Controllers.Modbus.Session,
			Addr:    cfg.Controllers.Modbus.Addr,
			UnitID:  cfg.Controllers.Modbus.UnitID,
			Probes:  probes,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("modbus listening on %s", cfg.Controllers.Modbus.Addr)
		run("modbus", c.Run)
		started++
	}

	if cfg.Runner.Enabled {
		r, err := runner.New(mgr, store, runner.Config{
			Session:  cfg.Runner.Session,
			Geometry: cfg.Runner.Geometry,
			Interval: cfg.Runner.Interval,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("runner driving session %q", cfg.Runner.Session)
		run("runner", r.Run)
		started++
	}

	for i := 0; i < started; i++ {
		if err := <-errCh; err != nil {
			cancel()
			log.Fatal(err)
		}
	}
}
