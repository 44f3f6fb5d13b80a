package stage

import (
	"log/slog"
	"time"
)

// Outcome classifies what happened to one consumed message.
type Outcome int

const (
	OutcomePublished Outcome = iota
	OutcomeEmpty
	OutcomeFailed
	OutcomeCancelled
	OutcomePanicked
)

func (o Outcome) String() string {
	switch o {
	case OutcomePublished:
		return "published"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomePanicked:
		return "panicked"
	default:
		return "unknown"
	}
}

// Event describes one finished Process call.
type Event struct {
	Stage     string
	Worker    int
	Outcome   Outcome
	Published int
	Elapsed   time.Duration
	Err       error
}

// Observer receives per-message events from every worker. Implementations
// must be safe for concurrent use.
type Observer interface {
	Begin(stage string, worker int)
	Observe(ev Event)
}

type nopObserver struct{}

func (nopObserver) Begin(string, int) {}
func (nopObserver) Observe(Event)     {}

type options struct {
	name     string
	logger   *slog.Logger
	observer Observer
}

type Option func(*options)

func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

func defaultOptions() options {
	return options{
		name:     "stage",
		logger:   slog.New(slog.DiscardHandler),
		observer: nopObserver{},
	}
}
