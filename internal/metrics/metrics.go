// Package metrics counts socket activity across mininet endpoints:
// live endpoints, accepted and dialled connections, stream bytes,
// datagrams, and failed socket calls grouped by operation.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so endpoints never need to nil-check.
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates counters for every endpoint sharing it.
type Collector struct {
	endpointsLive  atomic.Int64
	endpointsTotal atomic.Int64
	connsOpen      atomic.Int64
	connsTotal     atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	datagramsIn    atomic.Int64
	datagramsOut   atomic.Int64
	errors         atomic.Int64

	mu        sync.Mutex
	started   time.Time
	errorsBy  map[string]int64 // keyed by socket operation
	lastAt    time.Time
	lastError string
}

// New returns a collector whose uptime starts now.
func New() *Collector {
	return &Collector{started: time.Now(), errorsBy: make(map[string]int64)}
}

// ── Endpoints ────────────────────────────────────────────────────────

// EndpointStarted records an endpoint reaching the started state.
func (c *Collector) EndpointStarted() {
	if c == nil {
		return
	}
	c.endpointsLive.Add(1)
	c.endpointsTotal.Add(1)
}

// EndpointClosed records a started endpoint being closed.
func (c *Collector) EndpointClosed() {
	if c == nil {
		return
	}
	c.endpointsLive.Add(-1)
}

// LiveEndpoints returns the number of started, unclosed endpoints.
func (c *Collector) LiveEndpoints() int64 {
	if c == nil {
		return 0
	}
	return c.endpointsLive.Load()
}

// ── Connections ──────────────────────────────────────────────────────

// ConnectionOpened counts an accepted or connected stream.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connsOpen.Add(1)
	c.connsTotal.Add(1)
}

// ConnectionClosed counts a stream being released.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connsOpen.Add(-1)
}

// ActiveConnections returns the number of open streams.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connsOpen.Load()
}

// TotalConnections returns every stream ever opened.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connsTotal.Load()
}

// ── Traffic ──────────────────────────────────────────────────────────

// BytesReceived adds n stream bytes read.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent adds n stream bytes written.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// DatagramReceived counts one inbound datagram; its n payload bytes
// also go to the byte total.
func (c *Collector) DatagramReceived(n int64) {
	if c == nil {
		return
	}
	c.datagramsIn.Add(1)
	c.bytesIn.Add(n)
}

// DatagramSent counts one outbound datagram of n bytes.
func (c *Collector) DatagramSent(n int64) {
	if c == nil {
		return
	}
	c.datagramsOut.Add(1)
	c.bytesOut.Add(n)
}

func (c *Collector) DatagramsIn() int64 {
	if c == nil {
		return 0
	}
	return c.datagramsIn.Load()
}

func (c *Collector) DatagramsOut() int64 {
	if c == nil {
		return 0
	}
	return c.datagramsOut.Load()
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError counts a failed socket call.  op is the operation that
// failed (bind, connect, recv, ...); msg is kept as the last error.
func (c *Collector) RecordError(op, msg string) {
	if c == nil {
		return
	}
	c.errors.Add(1)
	c.mu.Lock()
	c.errorsBy[op]++
	c.lastAt = time.Now()
	c.lastError = msg
	c.mu.Unlock()
}

// ErrorCount returns the number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errors.Load()
}

// ErrorsFor returns the number of errors recorded for op.
func (c *Collector) ErrorsFor(op string) int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorsBy[op]
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Uptime            string           `json:"uptime"`
	EndpointsLive     int64            `json:"endpoints_live"`
	EndpointsTotal    int64            `json:"endpoints_total"`
	ConnectionsActive int64            `json:"connections_active"`
	ConnectionsTotal  int64            `json:"connections_total"`
	BytesIn           int64            `json:"bytes_in"`
	BytesOut          int64            `json:"bytes_out"`
	DatagramsIn       int64            `json:"datagrams_in"`
	DatagramsOut      int64            `json:"datagrams_out"`
	ErrorsTotal       int64            `json:"errors_total"`
	ErrorsByOp        map[string]int64 `json:"errors_by_op,omitempty"`
	FailedOps         []string         `json:"-"`
	LastErrorAt       string           `json:"last_error_at,omitempty"`
	LastError         string           `json:"last_error,omitempty"`
}

// Snapshot copies the current counters.  FailedOps lists the keys of
// ErrorsByOp in sorted order.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Uptime:            time.Since(c.started).Truncate(time.Second).String(),
		EndpointsLive:     c.endpointsLive.Load(),
		EndpointsTotal:    c.endpointsTotal.Load(),
		ConnectionsActive: c.connsOpen.Load(),
		ConnectionsTotal:  c.connsTotal.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		DatagramsIn:       c.datagramsIn.Load(),
		DatagramsOut:      c.datagramsOut.Load(),
		ErrorsTotal:       c.errors.Load(),
	}
	if len(c.errorsBy) > 0 {
		s.ErrorsByOp = make(map[string]int64, len(c.errorsBy))
		for op, n := range c.errorsBy {
			s.ErrorsByOp[op] = n
			s.FailedOps = append(s.FailedOps, op)
		}
		sort.Strings(s.FailedOps)
	}
	if !c.lastAt.IsZero() {
		s.LastErrorAt = c.lastAt.Format(time.RFC3339)
		s.LastError = c.lastError
	}
	return s
}

// JSON renders the snapshot as indented JSON.
func (c *Collector) JSON() string {
	data, _ := json.MarshalIndent(c.Snapshot(), "", "  ")
	return string(data)
}
