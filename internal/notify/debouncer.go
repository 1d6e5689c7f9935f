package notify

import (
	"context"
	"fmt"
	"time"

	"eve-intel/internal/intel"
	"eve-intel/internal/logger"
	"eve-intel/internal/metrics"
)

// DefaultTick is the flush interval of a Debouncer.
const DefaultTick = 200 * time.Millisecond

// pending holds reports awaiting the next tick, one per raw message text.
type pending struct {
	reports map[string]intel.Report
	order   []string
}

func newPending() *pending {
	return &pending{reports: make(map[string]intel.Report)}
}

// add inserts r, or replaces the report with the same text when r is at
// least as far away.
func (p *pending) add(r intel.Report) {
	cur, ok := p.reports[r.Message]
	if !ok {
		p.order = append(p.order, r.Message)
		p.reports[r.Message] = r
		return
	}
	if cur.Distance() > r.Distance() {
		return
	}
	p.reports[r.Message] = r
}

// drain returns every pending report in first-seen order and empties the set.
func (p *pending) drain() []intel.Report {
	if len(p.order) == 0 {
		return nil
	}
	out := make([]intel.Report, 0, len(p.order))
	for _, text := range p.order {
		out = append(out, p.reports[text])
	}
	p.reports = make(map[string]intel.Report)
	p.order = p.order[:0]
	return out
}

func (p *pending) len() int { return len(p.order) }

// Debouncer merges reports with identical text and hands them to a sink
// on a fixed tick. The pending set is owned by the Run goroutine.
type Debouncer struct {
	sink Sink
	tick time.Duration
	in   chan intel.Report
}

// NewDebouncer creates a debouncer flushing to sink every tick.
func NewDebouncer(sink Sink, tick time.Duration) *Debouncer {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Debouncer{sink: sink, tick: tick, in: make(chan intel.Report, 256)}
}

// Submit queues a report for the next tick.
func (d *Debouncer) Submit(ctx context.Context, r intel.Report) error {
	select {
	case d.in <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Queued returns the number of submitted reports Run has not taken yet.
func (d *Debouncer) Queued() int { return len(d.in) }

// Run owns the pending set until ctx is canceled. Reports already queued
// when ctx ends are flushed once more before returning.
func (d *Debouncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()
	p := newPending()

	for {
		select {
		case r := <-d.in:
			p.add(r)
			metrics.Pending.Set(float64(p.len()))
		case <-ticker.C:
			d.flush(ctx, p.drain())
			metrics.Pending.Set(0)
		case <-ctx.Done():
		drain:
			for {
				select {
				case r := <-d.in:
					p.add(r)
				default:
					break drain
				}
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			d.flush(shutdownCtx, p.drain())
			cancel()
			metrics.Pending.Set(0)
			return nil
		}
	}
}

func (d *Debouncer) flush(ctx context.Context, reports []intel.Report) {
	for _, r := range reports {
		n := FromReport(r)
		if err := d.sink.Deliver(ctx, n); err != nil {
			logger.Error("NOTIFY", fmt.Sprintf("Deliver %q: %v", n.Text, err))
			continue
		}
		if n.Channel != None {
			metrics.Notifications.WithLabelValues(n.Channel.String()).Inc()
		}
	}
}
