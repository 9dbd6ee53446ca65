package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/heatroom/internal/ports"
	"github.com/Agrid-Dev/heatroom/internal/simulation"
)

// Probe is a fixed world-coordinate point sampled from the temperature
// field and exposed as an input register.
type Probe struct {
	X float64
	Y float64
}

// Config for the Modbus controller.
type Config struct {
	Session string
	Addr    string
	UnitID  byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
	Probes  []Probe
}

// Controller exposes one session over Modbus TCP.
//
// Register map:
//
//	coil 0            read: session initialized; write 0xFF00: advance one step
//	input reg 0       step counter (wraps at 65536)
//	input reg 1..2    grid rows, cols
//	input reg 3..5    field min, max, mean (temperature, x100 int16)
//	input reg 6+i     probe i temperature (x100 int16)
//	holding reg i     source i temperature (x100 int16), writable
type Controller struct {
	svc ports.SimulationService
	cfg Config

	serv *mbserver.Server
}

func New(svc ports.SimulationService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Session == "" {
		return nil, errors.New("modbus: Session is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{svc: svc, cfg: cfg}, nil
}

// Run starts the Modbus server and registers handlers that read and write the
// simulation service directly. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside
	// mbserver between handler registration and the server's goroutines.

	// Read Coils (function 1) - coil 0 reports whether the session holds an
	// initialized field.
	serv.RegisterFunctionHandler(1, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(data[0:2])
		qty := binary.BigEndian.Uint16(data[2:4])
		if qty == 0 || qty > 2000 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		// We only expose coil 0.
		if start != 0 || qty != 1 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		coilByte := byte(0)
		if _, err := c.svc.Current(c.cfg.Session); err == nil {
			coilByte = 0x01
		}
		// response: byte count (1) + coil bytes
		return []byte{1, coilByte}, &mbserver.Success
	})

	// Read Input Registers (function 4) - step counter, grid shape, field
	// statistics and the configured probes.
	serv.RegisterFunctionHandler(4, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 125 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		limit := 6 + len(c.cfg.Probes)
		if start < 0 || start+qty > limit {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap, err := c.svc.Current(c.cfg.Session)
		if err != nil {
			return []byte{}, &mbserver.SlaveDeviceFailure
		}
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			switch addr := start + i; addr {
			case 0:
				regs = append(regs, uint16(snap.Steps))
			case 1:
				regs = append(regs, uint16(snap.Rows))
			case 2:
				regs = append(regs, uint16(snap.Cols))
			case 3:
				regs = append(regs, encodeTemp(snap.Stats.Min))
			case 4:
				regs = append(regs, encodeTemp(snap.Stats.Max))
			case 5:
				regs = append(regs, encodeTemp(snap.Stats.Mean))
			default:
				p := c.cfg.Probes[addr-6]
				v, ok := snap.Probe(p.X, p.Y)
				if !ok {
					return []byte{}, &mbserver.IllegalDataAddress
				}
				regs = append(regs, encodeTemp(v))
			}
		}
		return packRegisters(regs), &mbserver.Success
	})

	// Read Holding Registers (function 3) - source temperatures.
	serv.RegisterFunctionHandler(3, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 125 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		snap, err := c.svc.Current(c.cfg.Session)
		if err != nil {
			return []byte{}, &mbserver.SlaveDeviceFailure
		}
		if start < 0 || start+qty > len(snap.Sources) {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			regs = append(regs, encodeTemp(snap.Sources[start+i].Temperature))
		}
		return packRegisters(regs), &mbserver.Success
	})

	// Write Single Coil (function 5) - writing 0xFF00 to coil 0 advances the
	// simulation one step; 0x0000 is a no-op.
	serv.RegisterFunctionHandler(5, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])

		if addr != 0 {
			return []byte{}, &mbserver.IllegalDataAddress
		}

		switch value {
		case 0x0000:
			// no-op
		case 0xFF00:
			if _, err := c.svc.Step(c.cfg.Session); err != nil {
				return []byte{}, &mbserver.SlaveDeviceFailure
			}
		default:
			return []byte{}, &mbserver.IllegalDataValue
		}

		// echo request (address + value)
		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Single Register (function 6) - set source i temperature.
	serv.RegisterFunctionHandler(6, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])

		if exc := c.writeSource(int(addr), value); exc != nil {
			return []byte{}, exc
		}

		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Multiple Registers (function 16)
	serv.RegisterFunctionHandler(16, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		d := frame.GetData()
		if len(d) < 5 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(d[0:2])
		quantity := binary.BigEndian.Uint16(d[2:4])
		byteCount := int(d[4])
		if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
			return []byte{}, &mbserver.IllegalDataValue
		}
		for i := 0; i < int(quantity); i++ {
			val := binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
			if exc := c.writeSource(int(start)+i, val); exc != nil {
				return []byte{}, exc
			}
		}

		resp := make([]byte, 4)
		binary.BigEndian.PutUint16(resp[0:2], start)
		binary.BigEndian.PutUint16(resp[2:4], quantity)
		return resp, &mbserver.Success
	})

	// Now start listening after all handlers are registered.
	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	// Block until ctx.Done()
	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

func (c *Controller) writeSource(index int, value uint16) *mbserver.Exception {
	if _, err := c.svc.SetSourceTemperature(c.cfg.Session, index, decodeTemp(value)); err != nil {
		if errors.Is(err, simulation.ErrSourceIndex) {
			return &mbserver.IllegalDataAddress
		}
		return &mbserver.SlaveDeviceFailure
	}
	return nil
}

func packRegisters(regs []uint16) []byte {
	byteCount := len(regs) * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
	}
	return resp
}

const TemperatureScale int = 100

func encodeTemp(v float64) uint16 {
	r := min(max(int(math.Round(v*float64(TemperatureScale))), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeTemp(u uint16) float64 {
	i := int16(u)
	return float64(i) / float64(TemperatureScale)
}
