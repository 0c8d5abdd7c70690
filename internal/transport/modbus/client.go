// internal/transport/modbus/client.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// transport is what both goburrow handlers provide.
type transport interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// Client is a single connection to one board endpoint.
// It serializes requests; the housekeeping pin, the telemetry writer and
// the rate poller share it.
type Client struct {
	mu      sync.Mutex
	handler transport
	client  modbus.Client
}

// Config is minimal transport config.
//
// Endpoint is "host:port" for Modbus TCP or "rtu:<device>" for a serial line.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
	BaudRate int
}

// Dial creates a connected client.
func Dial(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus: endpoint required")
	}

	var h transport
	if dev, ok := strings.CutPrefix(cfg.Endpoint, "rtu:"); ok {
		rtu := modbus.NewRTUClientHandler(dev)
		rtu.BaudRate = cfg.BaudRate
		if rtu.BaudRate == 0 {
			rtu.BaudRate = 115200
		}
		rtu.DataBits = 8
		rtu.Parity = "N"
		rtu.StopBits = 1
		rtu.SlaveId = cfg.UnitID
		rtu.Timeout = cfg.Timeout
		h = rtu
	} else {
		tcp := modbus.NewTCPClientHandler(cfg.Endpoint)
		tcp.SlaveId = cfg.UnitID
		tcp.Timeout = cfg.Timeout
		h = tcp
	}

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus: connect %s: %w", cfg.Endpoint, err)
	}

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteCoils writes bits starting at addr (FC 15).
func (c *Client) WriteCoils(addr uint16, bits []bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.client.WriteMultipleCoils(addr, uint16(len(bits)), PackBits(bits))
	return err
}

// WriteRegisters writes holding registers starting at addr (FC 16).
func (c *Client) WriteRegisters(addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), PackRegisters(regs))
	return err
}

// ReadRegisters reads qty holding registers starting at addr (FC 3).
func (c *Client) ReadRegisters(addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	if len(raw) != int(qty)*2 {
		return nil, fmt.Errorf("modbus: read %d registers, got %d bytes", qty, len(raw))
	}
	return UnpackRegisters(raw), nil
}

// ReadDiscreteInputs reads qty discrete inputs starting at addr (FC 2).
func (c *Client) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.client.ReadDiscreteInputs(addr, qty)
	if err != nil {
		return nil, err
	}
	if len(raw) < (int(qty)+7)/8 {
		return nil, fmt.Errorf("modbus: read %d inputs, got %d bytes", qty, len(raw))
	}
	return UnpackBits(raw, int(qty)), nil
}

// ---- helpers (pure geometry) ----

// PackBits packs coils LSB first, as FC 15 expects.
func PackBits(bits []bool) []byte {
	n := (len(bits) + 7) / 8
	out := make([]byte, n)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// UnpackBits is the inverse of PackBits for the first n bits.
func UnpackBits(data []byte, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

// PackRegisters lays registers out big-endian.
func PackRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[2*i:], r)
	}
	return out
}

// UnpackRegisters is the inverse of PackRegisters.
func UnpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return out
}
