package endpoint

import (
	"mininet/internal/metrics"
	"mininet/internal/transport"
	"mininet/util"
)

// DefaultBacklog is the listen queue length used by StreamServer.
const DefaultBacklog = 5

// Option configures an endpoint at construction time.
type Option func(*options)

type options struct {
	tr      transport.Transport
	log     *util.Logger
	met     *metrics.Collector
	backlog int
	reuse   bool

	// initNet prepares the host network stack before the first handle
	// is created.
	initNet func() error
}

func defaultOptions() options {
	return options{
		tr:      transport.Native(),
		backlog: DefaultBacklog,
		initNet: transport.Init,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTransport replaces the native socket backend.
func WithTransport(t transport.Transport) Option {
	return func(o *options) {
		if t != nil {
			o.tr = t
		}
	}
}

// WithLogger attaches a logger.  Lifecycle events are logged at verbose
// level and socket detail at debug level.
func WithLogger(l *util.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records connection, byte, datagram and error counts into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.met = c }
}

// WithBacklog sets the listen queue length of a StreamServer.
// Non-positive values keep DefaultBacklog.
func WithBacklog(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.backlog = n
		}
	}
}

// WithSlotReuse lets a StreamServer hand out the indices of closed
// connections again, oldest first.  Without it indices only grow.
func WithSlotReuse() Option {
	return func(o *options) { o.reuse = true }
}

// withInit swaps the network initializer; used by tests.
func withInit(fn func() error) Option {
	return func(o *options) { o.initNet = fn }
}
