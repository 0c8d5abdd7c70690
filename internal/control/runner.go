// internal/control/runner.go
package control

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run starts the ticker loop. One goroutine. No overlap. No retries.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.step()
		}
	}
}

func (p *Poller) step() {
	res := p.PollOnce()
	if res.Err != nil {
		p.d.OnError()
		p.log.Warn("rate poll failed", zap.Error(res.Err))
		return
	}

	if err := p.apply(res); err != nil {
		p.d.OnError()
		p.log.Warn("fault reset failed", zap.Error(err))
		return
	}

	if res.Reset {
		p.log.Info("fault reset requested",
			zap.Stringer("green", res.Green),
			zap.Stringer("red", res.Red),
		)
	}
}
