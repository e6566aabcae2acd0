package p2p

import (
	"sync/atomic"

	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

// StreamLimiter caps concurrent inbound accelerator streams.
type StreamLimiter struct {
	max  int64
	open int64
}

func NewStreamLimiter(max int64) *StreamLimiter { return &StreamLimiter{max: max} }

// TryOpen reserves a stream slot; over the cap it records the rejection and returns false.
func (l *StreamLimiter) TryOpen() bool {
	if l == nil || l.max <= 0 {
		return true
	}
	for {
		o := atomic.LoadInt64(&l.open)
		if o >= l.max {
			metrics.Inc(MetricRateLimitedTotal, map[string]string{"kind": "stream"})
			return false
		}
		if atomic.CompareAndSwapInt64(&l.open, o, o+1) {
			metrics.AddGauge(MetricStreamsOpen, nil, 1)
			return true
		}
	}
}

// Close releases a slot taken by TryOpen.
func (l *StreamLimiter) Close() {
	if l == nil || l.max <= 0 {
		return
	}
	for {
		o := atomic.LoadInt64(&l.open)
		if o <= 0 {
			return
		}
		if atomic.CompareAndSwapInt64(&l.open, o, o-1) {
			metrics.AddGauge(MetricStreamsOpen, nil, -1)
			return
		}
	}
}
