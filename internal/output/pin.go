// internal/output/pin.go
package output

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tamzrod/foc-housekeeper/internal/mux"
)

// CoilWriter is the exact contract the coil pin uses.
type CoilWriter interface {
	WriteCoils(addr uint16, bits []bool) error
}

// pinState packs one drive request: bit0 = on, bit1 = red slot, bit2 = valid.
type pinState uint32

const (
	pinOn    pinState = 1 << 0
	pinRed   pinState = 1 << 1
	pinValid pinState = 1 << 2
)

func newPinState(slot mux.Slot, on bool) pinState {
	s := pinValid
	if on {
		s |= pinOn
	}
	if slot == mux.Red {
		s |= pinRed
	}
	return s
}

// CoilPin drives the shared LED output through two coils:
// coil+0 is the output level, coil+1 selects red polarity.
//
// Drive is called from the tick handler and never blocks on the bus.
// The latest request is handed to Run, which owns the Modbus write.
type CoilPin struct {
	cli  CoilWriter
	coil uint16
	log  *zap.Logger

	latest atomic.Uint32
	kick   chan struct{}
}

// NewCoilPin returns a pin backed by coils at coil and coil+1.
func NewCoilPin(cli CoilWriter, coil uint16, log *zap.Logger) (*CoilPin, error) {
	if cli == nil {
		return nil, errors.New("coil pin: client required")
	}
	if coil == 0xFFFF {
		return nil, errors.New("coil pin: needs two coils")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CoilPin{
		cli:  cli,
		coil: coil,
		log:  log,
		kick: make(chan struct{}, 1),
	}, nil
}

// Drive implements mux.Pin.
func (p *CoilPin) Drive(slot mux.Slot, on bool) error {
	p.latest.Store(uint32(newPinState(slot, on)))
	select {
	case p.kick <- struct{}{}:
	default:
	}
	return nil
}

// Run writes the latest requested state until ctx is done.
// Intermediate states are dropped; an unchanged state is not rewritten.
func (p *CoilPin) Run(ctx context.Context) {
	var written pinState

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.kick:
		}

		st := pinState(p.latest.Load())
		if st == written {
			continue
		}

		bits := []bool{st&pinOn != 0, st&pinRed != 0}
		if err := p.cli.WriteCoils(p.coil, bits); err != nil {
			p.log.Warn("led coil write failed", zap.Uint16("coil", p.coil), zap.Error(err))
			written = 0
			continue
		}
		written = st
	}
}

// LogPin is a Pin for runs without a board attached.
type LogPin struct {
	log *zap.Logger
}

func NewLogPin(log *zap.Logger) *LogPin {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPin{log: log}
}

// Drive implements mux.Pin.
func (p *LogPin) Drive(slot mux.Slot, on bool) error {
	if ce := p.log.Check(zap.DebugLevel, "led drive"); ce != nil {
		ce.Write(zap.Stringer("slot", slot), zap.Bool("on", on))
	}
	return nil
}
