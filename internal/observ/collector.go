package observ

import (
	"sync"
	"time"

	"github.com/Chic-lang/Chic-sub009/internal/trace"
)

// PhaseCollector is a trace.Tracer that turns closed phase spans into
// Timer entries, so the backend's own spans drive --timings.
type PhaseCollector struct {
	timer *Timer
	mu    sync.Mutex
	open  map[uint64]time.Time
}

var _ trace.Tracer = (*PhaseCollector)(nil)

func NewPhaseCollector(t *Timer) *PhaseCollector {
	return &PhaseCollector{timer: t, open: make(map[uint64]time.Time)}
}

func (c *PhaseCollector) Emit(ev *trace.Event) {
	if ev == nil || ev.Scope != trace.ScopePhase {
		return
	}
	switch ev.Kind {
	case trace.KindSpanBegin:
		c.mu.Lock()
		c.open[ev.SpanID] = ev.Time
		c.mu.Unlock()
	case trace.KindSpanEnd:
		c.mu.Lock()
		start, ok := c.open[ev.SpanID]
		delete(c.open, ev.SpanID)
		c.mu.Unlock()
		if ok {
			c.timer.Record(ev.Name, start, ev.Time.Sub(start), ev.Detail)
		}
	}
}

func (c *PhaseCollector) Flush() error       { return nil }
func (c *PhaseCollector) Close() error       { return nil }
func (c *PhaseCollector) Level() trace.Level { return trace.LevelPhase }
func (c *PhaseCollector) Enabled() bool      { return true }
