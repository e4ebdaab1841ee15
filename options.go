package dagrs

import (
	"github.com/dagrs-dev/dagrs/emit"
)

const (
	defaultLoopBound     = 1024
	defaultBlockingLimit = 8
)

// config holds the resolved settings for a single Graph run, assembled
// from the defaults plus any Option values passed to Start/RunAsync.
type config struct {
	channelCapacity int
	loopBound       int
	blockingLimit   int64
	emitter         emit.Emitter
	metrics         *Metrics
}

func defaultConfig() *config {
	return &config{
		channelCapacity: defaultChannelCapacity,
		loopBound:       defaultLoopBound,
		blockingLimit:   defaultBlockingLimit,
		emitter:         emit.NewNullEmitter(),
		metrics:         nil,
	}
}

// Option configures a graph run. Options are applied in order, so a
// later option overrides an earlier one.
type Option func(*config)

// WithChannelCapacity sets the buffer size of every edge channel, which
// bounds how far a fast producer can run ahead of a slow consumer
// before blocking (reverse pressure). Non-positive values are ignored.
func WithChannelCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.channelCapacity = n
		}
	}
}

// WithLoopBound caps the number of iterations of loop nodes built with
// bound 0 (see NewLoop). A loop that reaches the cap fails its node with an
// error wrapping ErrLoopBound; Start itself then reports false rather than
// returning that error. Non-positive values are ignored.
func WithLoopBound(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.loopBound = n
		}
	}
}

// WithMaxConcurrentBlocking bounds how many actions may hold the
// scheduler's blocking-work semaphore at once (used by actions that
// shell out or make network calls, so they don't starve the rest of
// the graph's goroutines). Non-positive values are ignored.
func WithMaxConcurrentBlocking(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.blockingLimit = n
		}
	}
}

// WithEmitter replaces the default NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *config) {
		if e != nil {
			c.emitter = e
		}
	}
}

// WithMetrics attaches a Prometheus metrics bundle. A nil metrics value
// leaves collection disabled.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}
