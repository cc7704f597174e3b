package pipeline

import (
	"context"
	"time"

	"firestige.xyz/ttlmangle/internal/source"
)

type statser interface {
	Stats() (source.Stats, error)
}

// Report logs pipeline, egress and capture counters every interval until ctx is
// done. A non-positive interval returns immediately.
func (p *Pipeline) Report(ctx context.Context, interval time.Duration, src source.Source) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := p.logger.WithField("component", "stats")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fields := p.Stats().Fields()
			fields["queue_depth"] = p.QueueLen()
			fields["bytes_sent"] = p.SinkStats().Bytes
			if s, ok := src.(statser); ok {
				if cs, err := s.Stats(); err == nil {
					fields["kernel_received"] = cs.Received
					fields["kernel_dropped"] = cs.Dropped
				}
			}
			logger.WithFields(fields).Info("pipeline stats")
		}
	}
}
