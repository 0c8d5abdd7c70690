// internal/output/status_writer_test.go
package output

import (
	"errors"
	"testing"

	"github.com/tamzrod/foc-housekeeper/internal/status"
)

// ---- fake register client ----

type regWrite struct {
	addr uint16
	regs []uint16
}

type fakeRegisterClient struct {
	writes []regWrite
	fail   bool
}

func (f *fakeRegisterClient) WriteRegisters(addr uint16, regs []uint16) error {
	if f.fail {
		return errors.New("link down")
	}
	cp := append([]uint16(nil), regs...)
	f.writes = append(f.writes, regWrite{addr: addr, regs: cp})
	return nil
}

func (f *fakeRegisterClient) last() regWrite {
	return f.writes[len(f.writes)-1]
}

// ---- tests ----

func TestDeviceNameWrittenOnFullAssertOnly(t *testing.T) {
	cli := &fakeRegisterClient{}

	sw, err := NewStatusWriter(cli, 100, "2FOC-01")
	if err != nil {
		t.Fatalf("NewStatusWriter: %v", err)
	}

	// ---- first write: FULL ASSERT ----
	first := status.Snapshot{Health: status.HealthOK, Ticks: 1}
	if err := sw.WriteStatus(first); err != nil {
		t.Fatalf("initial full assert failed: %v", err)
	}

	got := cli.last()
	if got.addr != 100 || len(got.regs) != status.SlotsPerBlock {
		t.Fatalf("expected full block at 100, got addr=%d len=%d", got.addr, len(got.regs))
	}

	// Verify device name encoding EXACTLY
	expectedNameRegs := status.EncodeDeviceName("2FOC-01")
	for i := 0; i < status.SlotDeviceNameSlots; i++ {
		slot := status.SlotDeviceNameStart + i
		if got.regs[slot] != expectedNameRegs[i] {
			t.Fatalf("device name slot %d mismatch: got=%d want=%d", slot, got.regs[slot], expectedNameRegs[i])
		}
	}

	// ---- second write: INCREMENTAL ONLY ----
	second := first
	second.Health = status.HealthFault

	if err := sw.WriteStatus(second); err != nil {
		t.Fatalf("incremental write failed: %v", err)
	}

	got = cli.last()
	if len(got.regs) != 1 || got.addr != 100+status.SlotHealthCode {
		t.Fatalf("expected single health write, got addr=%d len=%d", got.addr, len(got.regs))
	}
	if len(cli.writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(cli.writes))
	}
}

func TestUnchangedSnapshotWritesNothing(t *testing.T) {
	cli := &fakeRegisterClient{}
	sw, _ := NewStatusWriter(cli, 0, "")

	s := status.Snapshot{Health: status.HealthOK, GreenRate: 50}
	_ = sw.WriteStatus(s)
	_ = sw.WriteStatus(s)

	if len(cli.writes) != 1 {
		t.Fatalf("expected only the full assert, got %d writes", len(cli.writes))
	}
}

func TestFailureForcesFullReassert(t *testing.T) {
	cli := &fakeRegisterClient{}
	sw, _ := NewStatusWriter(cli, 0, "DEV")

	_ = sw.WriteStatus(status.Snapshot{Ticks: 1})

	cli.fail = true
	if err := sw.WriteStatus(status.Snapshot{Ticks: 2}); err == nil {
		t.Fatalf("expected error while link is down")
	}

	cli.fail = false
	if err := sw.WriteStatus(status.Snapshot{Ticks: 3}); err != nil {
		t.Fatalf("recovery write failed: %v", err)
	}

	if n := len(cli.last().regs); n != status.SlotsPerBlock {
		t.Fatalf("expected full re-assert after failure, got %d regs", n)
	}
}

func TestTickCounterSplitsAcrossWords(t *testing.T) {
	cli := &fakeRegisterClient{}
	sw, _ := NewStatusWriter(cli, 10, "")

	_ = sw.WriteStatus(status.Snapshot{Ticks: 0xFFFF})
	_ = sw.WriteStatus(status.Snapshot{Ticks: 0x10000})

	// hi and lo both change: two single-slot writes
	if len(cli.writes) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(cli.writes))
	}
	if cli.writes[1].addr != 10+status.SlotTicksHi || cli.writes[2].addr != 10+status.SlotTicksLo {
		t.Fatalf("unexpected write addresses: %d %d", cli.writes[1].addr, cli.writes[2].addr)
	}
}
