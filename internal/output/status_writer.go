// internal/output/status_writer.go
package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/foc-housekeeper/internal/status"
)

// RegisterWriter is the exact contract the status writer uses.
type RegisterWriter interface {
	WriteRegisters(addr uint16, regs []uint16) error
}

// StatusWriter is the delivery-only contract for housekeeping status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// blockWriter is the concrete implementation backed by holding registers.
type blockWriter struct {
	cli      RegisterWriter
	baseAddr uint16

	needFull bool
	last     []uint16
	nameRegs []uint16
}

// NewStatusWriter builds a status writer for the block at baseAddr.
func NewStatusWriter(cli RegisterWriter, baseAddr uint16, deviceName string) (StatusWriter, error) {
	if cli == nil {
		return nil, errors.New("status writer: client required")
	}
	if int(baseAddr)+status.SlotsPerBlock > 0x10000 {
		return nil, fmt.Errorf("status writer: block at %d overflows register space", baseAddr)
	}

	return &blockWriter{
		cli:      cli,
		baseAddr: baseAddr,
		needFull: true, // full re-assert on first successful write
		nameRegs: status.EncodeDeviceName(deviceName),
	}, nil
}

// WriteStatus delivers a snapshot into status memory.
// The first write asserts the whole block including the device name;
// later writes touch only the live slots that changed.
// On any write failure, the next call re-asserts the full block.
func (sw *blockWriter) WriteStatus(s status.Snapshot) error {
	regs := status.Encode(s)

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		copy(regs[status.SlotDeviceNameStart:], sw.nameRegs)

		if err := sw.cli.WriteRegisters(sw.baseAddr, regs); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = regs
		return nil
	}

	var errs []string

	for slot := 0; slot < status.SlotDeviceNameStart; slot++ {
		if sw.last[slot] == regs[slot] {
			continue
		}
		if err := sw.cli.WriteRegisters(
			sw.baseAddr+uint16(slot),
			[]uint16{regs[slot]},
		); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d write failed: %v", slot, err))
			continue
		}
		sw.last[slot] = regs[slot]
	}

	if len(errs) > 0 {
		// partial failure: re-assert on next success
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}
