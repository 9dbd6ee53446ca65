package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/heatroom/internal/simulation"
)

type Config struct {
	Geometry    GeometryConfig    `koanf:"geometry"`
	Simulation  SimulationConfig  `koanf:"simulation"`
	Controllers ControllersConfig `koanf:"controllers"`
	Runner      RunnerConfig      `koanf:"runner"`
}

type GeometryConfig struct {
	DataDir string `koanf:"data_dir"`
}

type SimulationConfig struct {
	GridResolutionMeters  float64        `koanf:"grid_resolution_meters"`
	TimeStepSeconds       float64        `koanf:"time_step_seconds"`
	ThermalDiffusivity    float64        `koanf:"thermal_diffusivity"`
	AmbientTemperature    float64        `koanf:"ambient_temperature"`
	Workers               int            `koanf:"workers"`
	ConvectionCoefficient float64        `koanf:"convection_coefficient"`
	ConvectionDirection   string         `koanf:"convection_direction"`
	HeatSources           []SourceConfig `koanf:"heat_sources"`
}

type SourceConfig struct {
	X           float64 `koanf:"x"`
	Y           float64 `koanf:"y"`
	Radius      float64 `koanf:"radius"`
	Temperature float64 `koanf:"temperature"`
}

type ControllersConfig struct {
	HTTP   HTTPConfig   `koanf:"http"`
	WS     WSConfig     `koanf:"ws"`
	MQTT   MQTTConfig   `koanf:"mqtt"`
	Modbus ModbusConfig `koanf:"modbus"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type WSConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Addr            string        `koanf:"addr"`
	PublishInterval time.Duration `koanf:"publish_interval"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Session         string        `koanf:"session"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainState     bool          `koanf:"retain_state"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool          `koanf:"enabled"`
	Addr    string        `koanf:"addr"`
	UnitID  byte          `koanf:"unit_id"`
	Session string        `koanf:"session"`
	Probes  []ProbeConfig `koanf:"probes"`
}

type ProbeConfig struct {
	X float64 `koanf:"x"`
	Y float64 `koanf:"y"`
}

type RunnerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Session  string        `koanf:"session"`
	Geometry string        `koanf:"geometry"`
	Interval time.Duration `koanf:"interval"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Geometry.DataDir = "./data"
	cfg.Simulation = SimulationConfig{
		GridResolutionMeters: 0.1,
		TimeStepSeconds:      0.1,
		ThermalDiffusivity:   0.01,
		AmbientTemperature:   20.0,
		Workers:              1,
		ConvectionDirection:  "up",
		HeatSources: []SourceConfig{
			{X: 1.0, Y: 1.0, Radius: 0.0, Temperature: 100.0},
		},
	}
	cfg.Controllers.HTTP.Addr = ":8080"
	cfg.Controllers.WS.Addr = ":8081"
	cfg.Controllers.WS.PublishInterval = 500 * time.Millisecond
	cfg.Controllers.MQTT = MQTTConfig{
		Session:         "default",
		BrokerURL:       "tcp://localhost:1883",
		PublishInterval: 1 * time.Second,
	}
	cfg.Controllers.Modbus = ModbusConfig{
		Addr:    "127.0.0.1:1502",
		UnitID:  1,
		Session: "default",
		Probes:  []ProbeConfig{{X: 1.0, Y: 1.0}},
	}
	cfg.Runner = RunnerConfig{
		Session:  "default",
		Interval: 1 * time.Second,
	}
	return cfg
}

// LoadConfig layers defaults, an optional config file and HEATROOM_*
// environment variables, in that order of precedence (later wins).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			parser, err := parserFor(path)
			if err != nil {
				return Config{}, err
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("load config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
		// Missing file means defaults + env only.
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: "HEATROOM_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, "HEATROOM_")
			return envKeyTransform(key), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// The teacher rule: a service with no surface is useless, so default to
	// HTTP when nothing is enabled.
	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.WS.Enabled &&
		!cfg.Controllers.MQTT.Enabled && !cfg.Controllers.Modbus.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}

	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// envKeyTransform maps HEATROOM_* variable names (prefix already stripped)
// onto koanf paths. Two shapes exist: two-level sections
// (SIMULATION_TIME_STEP_SECONDS -> simulation.time_step_seconds) and the
// three-level controllers section (CONTROLLERS_HTTP_ADDR ->
// controllers.http.addr). Anything else passes through lowercased.
func envKeyTransform(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	parts := strings.Split(key, "_")
	switch parts[0] {
	case "controllers":
		if len(parts) >= 3 {
			return "controllers." + parts[1] + "." + strings.Join(parts[2:], "_")
		}
	case "geometry", "simulation", "runner":
		if len(parts) >= 2 {
			return parts[0] + "." + strings.Join(parts[1:], "_")
		}
	}
	return key
}

// SimulationParams converts the config section into simulation parameters,
// parsing the convection direction string.
func (c Config) SimulationParams() (simulation.Params, error) {
	var dir simulation.Direction
	if s := c.Simulation.ConvectionDirection; s != "" {
		var err error
		dir, err = simulation.ParseDirection(s)
		if err != nil {
			return simulation.Params{}, err
		}
	}

	sources := make([]simulation.Source, 0, len(c.Simulation.HeatSources))
	for _, s := range c.Simulation.HeatSources {
		sources = append(sources, simulation.Source{
			X:           s.X,
			Y:           s.Y,
			Radius:      s.Radius,
			Temperature: s.Temperature,
		})
	}

	p := simulation.Params{
		Diffusivity:        c.Simulation.ThermalDiffusivity,
		CellSize:           c.Simulation.GridResolutionMeters,
		TimeStep:           c.Simulation.TimeStepSeconds,
		AmbientTemperature: c.Simulation.AmbientTemperature,
		Convection: simulation.Convection{
			Coefficient: c.Simulation.ConvectionCoefficient,
			Direction:   dir,
		},
		Sources: sources,
		Workers: c.Simulation.Workers,
	}
	if err := p.Validate(); err != nil {
		return simulation.Params{}, err
	}
	return p, nil
}
