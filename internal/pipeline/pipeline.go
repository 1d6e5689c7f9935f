// Package pipeline wires the watcher, tailer, classifier and debouncer
// into one supervised process.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"eve-intel/internal/chatlog"
	"eve-intel/internal/config"
	"eve-intel/internal/graph"
	"eve-intel/internal/intel"
	"eve-intel/internal/location"
	"eve-intel/internal/logger"
	"eve-intel/internal/metrics"
	"eve-intel/internal/notify"
	"eve-intel/internal/watch"
)

// Channel buffer sizes between stages.
const (
	eventBuffer = 256
	lineBuffer  = 1024
)

// Pipeline runs the intel monitor.
type Pipeline struct {
	cfg      *config.Config
	universe *graph.Universe
	sink     notify.Sink
}

// New builds a pipeline delivering to the console and, when configured,
// to a Discord webhook.
func New(cfg *config.Config, u *graph.Universe) *Pipeline {
	var sink notify.Sink = notify.LogSink{}
	if cfg.DiscordWebhook != "" {
		sink = notify.MultiSink{notify.LogSink{}, notify.NewDiscordSink(cfg.DiscordWebhook)}
	}
	return &Pipeline{cfg: cfg, universe: u, sink: sink}
}

// WithSink replaces the notification sink.
func (p *Pipeline) WithSink(s notify.Sink) *Pipeline {
	p.sink = s
	return p
}

// Run is shorthand for New(cfg, u).Run(ctx).
func Run(ctx context.Context, cfg *config.Config, u *graph.Universe) error {
	return New(cfg, u).Run(ctx)
}

// Run blocks until ctx is canceled or a stage fails. Failing to watch the
// chat log directory is fatal; per-file and per-line problems are logged.
func (p *Pipeline) Run(ctx context.Context) error {
	mode := chatlog.Resume
	if p.cfg.CatchUp {
		mode = chatlog.CatchUp
	}
	tailer := chatlog.NewTailer(chatlog.TailerOptions{
		Dir:      p.cfg.ChatLogs,
		Channels: p.cfg.Channels,
		Players:  p.cfg.Players,
	})
	w, err := watch.New(p.cfg.ChatLogs, watch.Options{
		Debounce: p.cfg.WatchDebounce,
		Match:    tailer.MatchName,
	})
	if err != nil {
		return err
	}

	debouncer := notify.NewDebouncer(p.sink, p.cfg.Tick)
	proc := &processor{
		tracker:    location.NewTracker(p.universe),
		classifier: intel.NewClassifier(p.universe),
		debouncer:  debouncer,
	}

	logger.Section("Pipeline")
	logger.Stats("Chat logs", p.cfg.ChatLogs)
	logger.Stats("Channels", p.cfg.Channels)
	logger.Stats("Players", p.cfg.Players)
	logger.Stats("Start mode", mode)

	events := make(chan watch.Event, eventBuffer)
	lines := make(chan chatlog.Line, lineBuffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(gctx, events)
	})
	g.Go(func() error {
		defer close(lines)
		backlog, err := tailer.Start(mode)
		if err != nil {
			return fmt.Errorf("start tailer: %w", err)
		}
		for _, line := range backlog {
			select {
			case lines <- line:
			case <-gctx.Done():
				return nil
			}
		}
		return tailer.Run(gctx, events, lines)
	})
	g.Go(func() error {
		for line := range lines {
			proc.process(gctx, line)
		}
		return nil
	})
	g.Go(func() error {
		return debouncer.Run(gctx)
	})
	if p.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, p.cfg.MetricsAddr)
		})
	}

	logger.Success("INTEL", "Monitoring intel channels")
	return g.Wait()
}

// processor routes each line to the location tracker or the classifier.
type processor struct {
	tracker    *location.Tracker
	classifier *intel.Classifier
	debouncer  *notify.Debouncer
}

func (p *processor) process(ctx context.Context, line chatlog.Line) {
	if line.Local {
		p.tracker.Observe(line)
		return
	}
	if !p.classifier.Relevant(line) {
		return
	}
	loc, ok := p.tracker.Location(line.Listener)
	if !ok {
		logger.Debug("INTEL", fmt.Sprintf("No location for %s yet, dropping %q", line.Listener, line.Message))
		return
	}
	r := p.classifier.Classify(line, loc)
	logger.Debug("INTEL", fmt.Sprintf("report %s: %s from %s", r.ID, r.Threat, r.Sender))
	if err := p.debouncer.Submit(ctx, r); err != nil {
		logger.Debug("INTEL", fmt.Sprintf("report %s dropped: %v", r.ID, err))
	}
}
