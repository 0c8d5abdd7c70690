// internal/control/poller.go
package control

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/foc-housekeeper/internal/blink"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

// Client abstracts the Modbus operations the poller needs.
type Client interface {
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error) // FC 2
	ReadRegisters(addr, qty uint16) ([]uint16, error)    // FC 3
	WriteRegisters(addr uint16, regs []uint16) error     // FC 16
}

// RateSink receives the requested blink rates.
type RateSink interface {
	Apply(green, red blink.Rate)
}

// Resetter clears latched faults.
type Resetter interface {
	ResetAll() error
}

// Raiser flags an interrupt source as pending.
type Raiser interface {
	Raise(src priority.Source)
}

// Config is the minimal runtime config the poller needs.
// At least one of RateRegister and FaultInput must be set.
type Config struct {
	Interval     time.Duration
	RateRegister *uint16
	FaultInput   *uint16
}

// Deps are the collaborators a poller drives.
// Sink and Reset are required with a rate register, Raiser with a fault input.
type Deps struct {
	Client Client
	Sink   RateSink
	Reset  Resetter
	Raiser Raiser

	// OnError is called once per failed cycle and may be nil.
	OnError func()
}

// Poller reads the external controller and the board's fault inputs on a clock.
// It is the only writer of the rate cells outside the fault path.
type Poller struct {
	cfg Config
	d   Deps
	log *zap.Logger

	// last fault input levels, owned by the Run goroutine
	prev [InputLen]bool
}

// New creates a poller with immutable config.
func New(cfg Config, d Deps, log *zap.Logger) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("control: interval must be > 0")
	}
	if cfg.RateRegister == nil && cfg.FaultInput == nil {
		return nil, errors.New("control: rate register or fault input required")
	}
	if d.Client == nil {
		return nil, errors.New("control: client required")
	}
	if r := cfg.RateRegister; r != nil {
		if int(*r)+BlockLen > 0x10000 {
			return nil, fmt.Errorf("control: rate block at %d overflows register space", *r)
		}
		if d.Sink == nil {
			return nil, errors.New("control: rate register needs a sink")
		}
	}
	if in := cfg.FaultInput; in != nil {
		if int(*in)+InputLen > 0x10000 {
			return nil, fmt.Errorf("control: fault inputs at %d overflow input space", *in)
		}
		if d.Raiser == nil {
			return nil, errors.New("control: fault input needs a raiser")
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if d.OnError == nil {
		d.OnError = func() {}
	}
	return &Poller{cfg: cfg, d: d, log: log}, nil
}

// PollOnce performs exactly one read of the configured blocks.
// All-or-nothing: any failure aborts the cycle and nothing is applied.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{At: time.Now()}

	if in := p.cfg.FaultInput; in != nil {
		bits, err := p.d.Client.ReadDiscreteInputs(*in, InputLen)
		if err != nil {
			res.Err = fmt.Errorf("control: read fault inputs: %w", err)
			return res
		}
		if len(bits) < InputLen {
			res.Err = fmt.Errorf("control: read fault inputs: got %d of %d", len(bits), InputLen)
			return res
		}
		res.Inputs = bits[:InputLen]
	}

	if r := p.cfg.RateRegister; r != nil {
		regs, err := p.d.Client.ReadRegisters(*r, BlockLen)
		if err != nil {
			res.Err = fmt.Errorf("control: read rate block: %w", err)
			return res
		}
		res.HasRates = true
		res.Green = blink.FromWord(regs[OffsetGreen])
		res.Red = blink.FromWord(regs[OffsetRed])
		res.Reset = regs[OffsetCommand] == CmdResetFault
	}

	return res
}

// apply commits one successful result.
// Fault edges go first so a trip is latched before new rates land.
func (p *Poller) apply(res PollResult) error {
	for i, level := range res.Inputs {
		if level && !p.prev[i] {
			p.d.Raiser.Raise(inputSources[i])
		}
		p.prev[i] = level
	}

	if !res.HasRates {
		return nil
	}

	p.d.Sink.Apply(res.Green, res.Red)

	if !res.Reset {
		return nil
	}

	var errs []error
	if p.d.Reset != nil {
		if err := p.d.Reset.ResetAll(); err != nil {
			errs = append(errs, err)
		}
	}

	// acknowledge so the same command is not replayed next cycle
	if err := p.d.Client.WriteRegisters(*p.cfg.RateRegister+OffsetCommand, []uint16{CmdNone}); err != nil {
		errs = append(errs, fmt.Errorf("control: ack command: %w", err))
	}
	return errors.Join(errs...)
}
