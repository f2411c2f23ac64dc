package autosave

import (
	"log/slog"
	"time"
)

// DefaultInterval is the quiet period between the last edit and the commit.
const DefaultInterval = 350 * time.Millisecond

// Timer is a scheduled task that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// options holds the configuration of a Controller.
type options struct {
	interval time.Duration
	logger   *slog.Logger
	onError  func(error)
	onCommit func(Commit)
	now      func() time.Time
	schedule Scheduler
}

// Option defines a functional option for configuring a Controller.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		interval: DefaultInterval,
		logger:   slog.New(slog.DiscardHandler),
		now:      func() time.Time { return time.Now().UTC() },
		schedule: afterFunc,
	}
}

// WithInterval sets the debounce quiet period. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithLogger sets the logger for the controller.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithErrorHandler registers a callback for failed background commits.
// Commits triggered by the timer have no caller to return an error to, so
// this is how a failure becomes visible.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithCommitHook registers a callback invoked after each successful commit.
func WithCommitHook(fn func(Commit)) Option {
	return func(o *options) {
		o.onCommit = fn
	}
}

// WithClock sets the source of commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithScheduler replaces time.AfterFunc, mainly for tests.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		if s != nil {
			o.schedule = s
		}
	}
}
