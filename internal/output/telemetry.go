// internal/output/telemetry.go
package output

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tamzrod/foc-housekeeper/internal/status"
)

// Publisher hands status snapshots from the telemetry timer handler to a
// writer goroutine, the way the CAN TX timer hands a frame to DMA.
type Publisher struct {
	sw   StatusWriter
	log  *zap.Logger
	in   chan status.Snapshot
	drop func()
}

// NewPublisher returns a publisher. onDrop is called for every snapshot
// discarded because the writer was still busy; it may be nil.
func NewPublisher(sw StatusWriter, onDrop func(), log *zap.Logger) (*Publisher, error) {
	if sw == nil {
		return nil, errors.New("telemetry: status writer required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if onDrop == nil {
		onDrop = func() {}
	}
	return &Publisher{
		sw:   sw,
		log:  log,
		in:   make(chan status.Snapshot, 1),
		drop: onDrop,
	}, nil
}

// Offer queues s without blocking. Returns false if s was dropped.
func (p *Publisher) Offer(s status.Snapshot) bool {
	select {
	case p.in <- s:
		return true
	default:
		p.drop()
		return false
	}
}

// Run delivers queued snapshots until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-p.in:
			if err := p.sw.WriteStatus(s); err != nil {
				p.log.Warn("status write failed", zap.Error(err))
			}
		}
	}
}
