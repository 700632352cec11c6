// Package tail follows agent session files as they grow and replays
// recent history on demand.
package tail

import (
	"bytes"
	"context"
	"time"

	"clawlog/internal/model"
	"clawlog/internal/parser"
)

// Default pacing for the follow loop.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultScanInterval = 5 * time.Second
)

// Clock abstracts time for the engine loop so tests can drive it without
// real delays.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// SystemClock returns the real-time Clock.
func SystemClock() Clock {
	return systemClock{}
}

// SessionLister enumerates candidate session files for one agent, newest
// first.
type SessionLister interface {
	SessionFiles(agent string, includeDeleted bool) []string
}

// Sink receives live records and informational events from the engine.
type Sink interface {
	Message(msg model.Message)
	SourcesAdded(count int)
}

// Options configures an Engine.
type Options struct {
	Agents         []string
	IncludeDeleted bool
	PollInterval   time.Duration // 0 means DefaultPollInterval
	ScanInterval   time.Duration // 0 means DefaultScanInterval
	Clock          Clock         // nil means SystemClock
}

// Engine follows every session file of the configured agents and emits
// parsed messages in the order lines are read. Within one source the line
// order is preserved; across sources the order is read-cycle order, not a
// global sort by timestamp.
type Engine struct {
	lister   SessionLister
	registry *Registry
	opts     Options
	clock    Clock
}

// NewEngine returns an engine over its own fresh registry.
func NewEngine(lister SessionLister, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = DefaultScanInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Engine{
		lister:   lister,
		registry: NewRegistry(),
		opts:     opts,
		clock:    clock,
	}
}

// Registry exposes the engine's source registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Scan registers any session files not yet followed and returns how many
// sources were added.
func (e *Engine) Scan() int {
	added := 0
	for _, agent := range e.opts.Agents {
		added += e.registry.Discover(agent, e.lister.SessionFiles(agent, e.opts.IncludeDeleted))
	}
	return added
}

// Run follows all sources until ctx is cancelled and returns nil once it
// has. The initial scan is silent; later scans report newly added sources
// through the sink. All handles are released on return.
func (e *Engine) Run(ctx context.Context, sink Sink) error {
	defer e.registry.Close() //nolint:errcheck

	e.Scan()
	lastScan := e.clock.Now()

	for ctx.Err() == nil {
		if e.clock.Now().Sub(lastScan) >= e.opts.ScanInterval {
			if added := e.Scan(); added > 0 {
				sink.SourcesAdded(added)
			}
			lastScan = e.clock.Now()
		}

		emitted := 0
		for _, src := range e.registry.Sources() {
			lines, err := src.readNew()
			if err != nil {
				// Dropping the source lets the next scan reopen it
				// once it is readable again.
				e.registry.Remove(src.Path)
				continue
			}
			for _, line := range lines {
				if len(bytes.TrimSpace(line)) == 0 {
					continue
				}
				msg, ok := parser.ParseLine(line, src.Agent, src.SessionID)
				if !ok {
					continue
				}
				sink.Message(msg)
				emitted++
			}
		}

		if emitted == 0 {
			e.clock.Sleep(ctx, e.opts.PollInterval)
		}
	}
	return nil
}
