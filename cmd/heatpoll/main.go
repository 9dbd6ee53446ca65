// heatpoll is a small operations tool: it polls a heatroom Modbus endpoint
// and prints the field statistics and probe temperatures.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/goburrow/modbus"
)

const temperatureScale = 100

func decodeTemp(u uint16) float64 {
	return float64(int16(u)) / temperatureScale
}

func main() {
	var (
		addr     string
		probes   int
		interval time.Duration
		count    int
	)
	flag.StringVar(&addr, "addr", "127.0.0.1:1502", "modbus tcp address")
	flag.IntVar(&probes, "probes", 0, "number of probe registers to read")
	flag.DurationVar(&interval, "interval", 1*time.Second, "poll interval")
	flag.IntVar(&count, "count", 0, "number of polls (0 = forever)")
	flag.Parse()

	if probes < 0 {
		fmt.Fprintln(os.Stderr, "probes must be >= 0")
		os.Exit(2)
	}

	handler := modbus.NewTCPClientHandler(addr)
	handler.Timeout = 5 * time.Second
	if err := handler.Connect(); err != nil {
		log.Fatalf("connect %s: %v", addr, err)
	}
	defer handler.Close()
	client := modbus.NewClient(handler)

	qty := uint16(6 + probes)
	for i := 0; count == 0 || i < count; i++ {
		if i > 0 {
			time.Sleep(interval)
		}

		res, err := client.ReadInputRegisters(0, qty)
		if err != nil {
			log.Printf("read: %v", err)
			continue
		}
		if len(res) != int(qty)*2 {
			log.Printf("short read: %d bytes", len(res))
			continue
		}
		reg := func(i int) uint16 { return binary.BigEndian.Uint16(res[i*2 : i*2+2]) }

		fmt.Printf("steps=%d grid=%dx%d min=%.2f max=%.2f mean=%.2f",
			reg(0), reg(1), reg(2),
			decodeTemp(reg(3)), decodeTemp(reg(4)), decodeTemp(reg(5)))
		for p := 0; p < probes; p++ {
			fmt.Printf(" probe%d=%.2f", p, decodeTemp(reg(6+p)))
		}
		fmt.Println()
	}
}
