package memcachedb

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/aliexpressru/memcachedb/logger"
	"github.com/aliexpressru/memcachedb/pool"
	"github.com/aliexpressru/memcachedb/utils"
)

// errQuarantined signals that an endpoint's retryAt has not yet elapsed; the
// caller should treat this exactly like any other socket-acquisition
// failure and let the withServer/withSocket envelopes drive the failover.
var errQuarantined = errors.New("memcachedb: endpoint is quarantined")

// endpoint owns at most one TCP connection to one backend. It lazily opens
// the socket on first use, tracks liveness via retryAt, and (in multithread
// mode) uses a single-slot guard to serialize socket open/close against
// concurrent callers holding the client's global mutex.
type endpoint struct {
	host   string
	port   int
	weight int
	addr   string

	timeout        time.Duration
	disableMetrics bool

	mu   sync.Mutex
	conn *wireConn
	// resolved caches the result of utils.ResolveAddr so that a
	// reconnect after a transient failure doesn't re-run DNS resolution
	// against the same "host:port" string on every dial.
	resolved net.Addr
	retryAt  time.Time
	status   string

	slot *pool.Slot // only used in multithread mode; nil otherwise
}

func newEndpoint(host string, port, weight int, timeout time.Duration, multithread, disableMetrics bool) *endpoint {
	e := &endpoint{
		host:           host,
		port:           port,
		weight:         weight,
		addr:           net.JoinHostPort(host, strconv.Itoa(port)),
		timeout:        timeout,
		status:         "NOT CONNECTED",
		disableMetrics: disableMetrics,
	}
	if multithread {
		e.slot = pool.NewSlot(defaultSlotAcquireTimeout)
	}
	return e
}

// alive reports whether socket() would return a connection right now,
// without actually opening one.
func (e *endpoint) alive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		return true
	}
	return e.retryAt.IsZero() || time.Now().After(e.retryAt)
}

// socket returns a live connection, dialing one if the endpoint is cold. It
// returns an error (and leaves the endpoint dead) when the endpoint is
// quarantined or the fresh dial fails.
func (e *endpoint) socket(ctx context.Context) (*wireConn, error) {
	if e.slot != nil {
		if err := e.slot.Acquire(ctx); err != nil {
			return nil, err
		}
		defer e.slot.Release()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn != nil {
		return e.conn, nil
	}
	if !e.retryAt.IsZero() && time.Now().Before(e.retryAt) {
		return nil, errQuarantined
	}

	if e.resolved == nil {
		resolved, rerr := utils.ResolveAddr(e.addr)
		if rerr != nil {
			e.markDeadLocked(rerr)
			return nil, rerr
		}
		e.resolved = resolved
	}

	d := net.Dialer{Timeout: ConnectTimeout}
	nc, err := d.DialContext(ctx, e.resolved.Network(), e.resolved.String())
	if err != nil {
		e.markDeadLocked(err)
		return nil, err
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	e.conn = newWireConn(nc, e.timeout)
	e.retryAt = time.Time{}
	e.status = "CONNECTED"
	if !e.disableMetrics {
		setQuarantined(e.addr, false)
	}
	return e.conn, nil
}

// markDead closes any socket and quarantines the endpoint for RetryDelay.
func (e *endpoint) markDead(cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.markDeadLocked(cause)
}

func (e *endpoint) markDeadLocked(cause error) {
	if e.conn != nil {
		_ = e.conn.close()
		e.conn = nil
	}
	e.retryAt = time.Now().Add(RetryDelay)
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	e.status = "DEAD: " + reason
	if !e.disableMetrics {
		setQuarantined(e.addr, true)
	}
	logger.Warnf("%s: endpoint %s marked dead: %s", libPrefix, e.addr, reason)
}

// closeConn closes any open socket without quarantining the endpoint; the
// next use reconnects immediately.
func (e *endpoint) closeConn() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		_ = e.conn.close()
		e.conn = nil
	}
	e.retryAt = time.Time{}
	e.status = "NOT CONNECTED"
	if !e.disableMetrics {
		setQuarantined(e.addr, false)
	}
}

func (e *endpoint) server() serverView {
	return serverView{Host: e.host, Port: e.port, Weight: e.weight, Addr: e.addr}
}

// serverView is a read-only snapshot of an endpoint's identity, safe to
// hand to callers (e.g. Stats) without exposing the mutex-guarded fields.
type serverView struct {
	Host   string
	Port   int
	Weight int
	Addr   string
}
