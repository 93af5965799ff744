package memcachedb

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/maps"

	"github.com/aliexpressru/memcachedb/consistenthash"
	"github.com/aliexpressru/memcachedb/logger"
	"github.com/aliexpressru/memcachedb/utils"
)

// Client is a MemcacheDB client addressing a pool of servers as a single
// logical cache. It is safe for concurrent use only when constructed with
// WithMultithread; otherwise its calls must not overlap (see §5 of the
// design: a call made while another is still in flight fails fast with
// ConcurrencyMisuse).
type Client struct {
	multithread     bool
	readOnly        bool
	failoverEnabled bool
	namespace       string
	timeout         time.Duration
	serializer      Serializer
	disableMetrics  bool

	// mu is held for the duration of every public call in multithread mode.
	mu sync.Mutex
	// inUse is the single-thread-mode exclusivity guard: Go has no portable
	// thread-identity primitive to capture at construction time the way the
	// source client does, so instead a call claims inUse for its duration
	// and any overlapping call on another goroutine is rejected outright.
	inUse atomic.Bool

	endpointsMu sync.RWMutex
	endpoints   map[string]*endpoint
	continuum   *consistenthash.Continuum
}

// New builds a Client from a list of "host[:port[:weight]]" server specs.
func New(servers []string, opts ...Option) (*Client, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("%w: at least one server is required", BadArgument)
	}

	op := &options{timeout: DefaultTimeout}
	for _, o := range opts {
		o(op)
	}
	if op.timeout <= 0 {
		op.timeout = DefaultTimeout
	}
	if op.disableLogger {
		logger.DisableLogger()
	}

	c := &Client{
		multithread:     op.multithread,
		readOnly:        op.readOnly,
		failoverEnabled: !op.failoverDisabled,
		namespace:       op.namespace,
		timeout:         op.timeout,
		serializer:      op.serializer,
		disableMetrics:  op.disableMetrics,
		endpoints:       make(map[string]*endpoint),
		continuum:       consistenthash.New(nil),
	}

	if err := c.SetServers(servers); err != nil {
		return nil, err
	}
	return c, nil
}

// SetServers atomically rebuilds the continuum and the endpoint set from a
// fresh list of "host[:port[:weight]]" specs. Endpoints for servers that
// remain in the new list keep their connection state; endpoints for removed
// servers are closed and dropped; endpoints for newly-listed servers are
// created cold (lazily opened on first use).
func (c *Client) SetServers(servers []string) error {
	specs, err := utils.ParseServerSpecs(servers)
	if err != nil {
		return fmt.Errorf("%w: %s", BadArgument, err)
	}

	wanted := make(map[string]utils.ServerSpec, len(specs))
	ring := make([]consistenthash.Server, len(specs))
	for i, s := range specs {
		wanted[s.Addr()] = s
		ring[i] = consistenthash.Server{Addr: s.Addr(), Weight: s.Weight}
	}

	c.endpointsMu.Lock()
	defer c.endpointsMu.Unlock()

	for addr, ep := range c.endpoints {
		if _, ok := wanted[addr]; !ok {
			ep.closeConn()
			delete(c.endpoints, addr)
		}
	}
	for addr, spec := range wanted {
		if _, ok := c.endpoints[addr]; !ok {
			c.endpoints[addr] = newEndpoint(spec.Host, spec.Port, spec.Weight, c.timeout, c.multithread, c.disableMetrics)
		}
	}

	c.continuum.Rebuild(ring)
	return nil
}

// Reset closes every endpoint's socket without quarantining it; the next
// operation on each endpoint reconnects immediately.
func (c *Client) Reset() {
	for _, ep := range c.allEndpoints() {
		ep.closeConn()
	}
}

func (c *Client) endpointFor(addr string) *endpoint {
	c.endpointsMu.RLock()
	defer c.endpointsMu.RUnlock()
	return c.endpoints[addr]
}

func (c *Client) allEndpoints() []*endpoint {
	c.endpointsMu.RLock()
	defer c.endpointsMu.RUnlock()
	out := make([]*endpoint, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		out = append(out, ep)
	}
	return out
}

// enter claims the concurrency guard appropriate to the client's mode and
// returns a closer that releases it and records the method's diagnostics.
// Every public method wraps its body in this, mirroring the teacher's
// writeMethodDiagnostics(timer, &err) defer pattern but folding in the
// single-thread/multithread exclusivity discipline from §5.
func (c *Client) enter(method string) (func(errp *error), error) {
	if c.multithread {
		c.mu.Lock()
	} else if !c.inUse.CompareAndSwap(false, true) {
		return nil, ConcurrencyMisuse
	}

	start := time.Now()
	return func(errp *error) {
		if c.multithread {
			c.mu.Unlock()
		} else {
			c.inUse.Store(false)
		}
		if !c.disableMetrics {
			observeMethodDurationSeconds(method, time.Since(start).Seconds(), *errp == nil)
		}
	}, nil
}

// validKeyChars reports whether key contains no whitespace or control
// characters, per the wire constraint on memcached keys.
func validKeyChars(key string) bool {
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return false
		}
	}
	return true
}

// effectiveKey namespaces and validates key, returning the exact bytes that
// go on the wire.
func (c *Client) effectiveKey(key string) (string, error) {
	if key == "" || !validKeyChars(key) {
		return "", fmt.Errorf("%w: key %q contains whitespace or control characters", BadArgument, key)
	}
	ek := key
	if c.namespace != "" {
		ek = c.namespace + ":" + key
	}
	if len(ek) > MaxKeyLength {
		return "", fmt.Errorf("%w: effective key exceeds %d bytes", BadArgument, MaxKeyLength)
	}
	return ek, nil
}

func (c *Client) serialize(value any, raw bool) ([]byte, error) {
	if raw {
		return rawSerializer{}.Serialize(value)
	}
	if c.serializer == nil {
		return nil, fmt.Errorf("%w: no Serializer configured; pass raw=true or use WithSerializer", BadArgument)
	}
	return c.serializer.Serialize(value)
}

func (c *Client) deserialize(data []byte, dest any, raw bool) error {
	if raw {
		return rawSerializer{}.Deserialize(data, dest)
	}
	if c.serializer == nil {
		return fmt.Errorf("%w: no Serializer configured; pass raw=true or use WithSerializer", BadArgument)
	}
	return c.serializer.Deserialize(data, dest)
}

// route implements the single-key routing algorithm of §4.4: the sole
// server short-circuit, CRC-32 continuum lookup, and the bounded rehash
// loop that probes alternate slots while failover is enabled.
func (c *Client) route(effectiveKey string) (*endpoint, error) {
	if sole, ok := c.continuum.SoleServer(); ok {
		ep := c.endpointFor(sole.Addr)
		if ep == nil {
			return nil, NoServersAvailable
		}
		return ep, nil
	}
	if c.continuum.Len() == 0 {
		return nil, NoServersAvailable
	}

	h := crc32.ChecksumIEEE([]byte(effectiveKey))
	for try := 0; try < maxRehashAttempts; try++ {
		idx := c.continuum.Lookup(h)
		if srv, ok := c.continuum.EntryAt(idx); ok {
			if ep := c.endpointFor(srv.Addr); ep != nil && ep.alive() {
				return ep, nil
			}
		}
		if !c.failoverEnabled {
			return nil, NoServersAvailable
		}
		h = crc32.ChecksumIEEE([]byte(strconv.Itoa(try) + effectiveKey))
	}
	return nil, NoServersAvailable
}

// withServer is the outer retry envelope (§4.4 "withServer"): it resolves
// effectiveKey to a server, runs op through withSocket, and if that raises
// the internal outOfBand signal, re-resolves the key (which will skip the
// now-dead server) and gives op one more try on the new server. When there
// is no second server to fall back to, or the try on the fallback server
// fails the same way, the connect/read failure that triggered outOfBand is
// re-raised as a fresh ProtocolError instead of the
// more general NoServersAvailable, which is reserved for an empty or fully
// quarantined continuum.
func withServer[T any](ctx context.Context, c *Client, effectiveKey string, op func(wc *wireConn) (T, error)) (T, error) {
	var zero T

	ep, err := c.route(effectiveKey)
	if err != nil {
		return zero, err
	}

	v, err := withSocket(ctx, ep, op)
	if errors.Is(err, outOfBand) {
		if c.continuum.Len() < 2 {
			return zero, fmt.Errorf("%w: No connection to server: %s", ProtocolError, errors.Unwrap(err))
		}
		ep2, rerr := c.route(effectiveKey)
		if rerr != nil {
			return zero, rerr
		}
		v, err = withSocket(ctx, ep2, op)
		if errors.Is(err, outOfBand) {
			return zero, fmt.Errorf("%w: No connection to server: %s", ProtocolError, errors.Unwrap(err))
		}
	}
	return v, err
}

// withSocket is the inner retry envelope (§4.4 "withSocket"): socket
// acquisition and I/O get one retry on the same server before markDead
// fires and outOfBand bubbles to withServer. Legitimate protocol-error
// replies and ordinary cache outcomes (miss, not-stored, not-found) are
// never retried; a garbled or unrecognized reply line, though, indicates
// wire desynchronization rather than a rejected command, so it is retried
// like any other read failure and can still end in markDead.
func withSocket[T any](ctx context.Context, ep *endpoint, op func(wc *wireConn) (T, error)) (T, error) {
	var zero T

	wc, err := ep.socket(ctx)
	if err != nil {
		// Could not even acquire a connection: the endpoint is already
		// dead (dial failure marks it) or was already quarantined.
		return zero, wrapOutOfBand(err)
	}

	v, err := op(wc)
	if err == nil || resumable(err) || errors.Is(err, ProtocolError) {
		return v, err
	}

	ep.closeConn()
	wc2, err2 := ep.socket(ctx)
	if err2 != nil {
		return zero, wrapOutOfBand(err2)
	}

	v, err = op(wc2)
	if err == nil || resumable(err) || errors.Is(err, ProtocolError) {
		return v, err
	}

	ep.markDead(err)
	return zero, wrapOutOfBand(err)
}

// readOneValue reads a single-key get reply: either one VALUE block
// terminated by END, or a bare END meaning a cache miss.
func readOneValue(wc *wireConn) (data []byte, found bool, err error) {
	line, err := wc.readLine()
	if err != nil {
		return nil, false, err
	}
	if line == replyEnd {
		return nil, false, nil
	}
	if isErrorLine(line) {
		return nil, false, protoErr(line)
	}
	_, n, err := parseValueLine(line)
	if err != nil {
		return nil, false, err
	}
	data, err = wc.readPayload(n)
	if err != nil {
		return nil, false, err
	}
	end, err := wc.readLine()
	if err != nil {
		return nil, false, err
	}
	if end != replyEnd {
		return nil, false, malformedErr("expected END after VALUE block, got " + end)
	}
	return data, true, nil
}

// readValueBlocks reads zero or more VALUE blocks up to the terminating
// END line, as returned by get_multi and rget.
func readValueBlocks(wc *wireConn) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for {
		line, err := wc.readLine()
		if err != nil {
			return nil, err
		}
		if line == replyEnd {
			return out, nil
		}
		if isErrorLine(line) {
			return nil, protoErr(line)
		}
		key, n, err := parseValueLine(line)
		if err != nil {
			return nil, err
		}
		data, err := wc.readPayload(n)
		if err != nil {
			return nil, err
		}
		out[key] = data
	}
}

// Get returns the value stored under key into dest, via the client's
// configured Serializer (or, with raw=true, straight into a *[]byte). The
// second return value reports whether the key was found.
func (c *Client) Get(key string, dest any, raw bool) (found bool, err error) {
	done, gerr := c.enter("Get")
	if gerr != nil {
		return false, gerr
	}
	defer done(&err)

	ek, err := c.effectiveKey(key)
	if err != nil {
		return false, err
	}

	type result struct {
		data  []byte
		found bool
	}
	r, err := withServer(context.Background(), c, ek, func(wc *wireConn) (result, error) {
		if werr := wc.writeLine(formatGet([]string{ek})); werr != nil {
			return result{}, werr
		}
		data, found, rerr := readOneValue(wc)
		return result{data: data, found: found}, rerr
	})
	if err != nil {
		return false, err
	}
	if !r.found {
		return false, nil
	}
	if derr := c.deserialize(r.data, dest, raw); derr != nil {
		return false, derr
	}
	return true, nil
}

// GetMulti partitions keys across their routed servers, issues one get per
// server (servers are contacted sequentially; see §5), and merges the
// results. A server whose leg fails is logged and skipped; its keys are
// simply absent from the result, matching every other miss.
func (c *Client) GetMulti(keys []string) (result map[string][]byte, err error) {
	done, gerr := c.enter("GetMulti")
	if gerr != nil {
		return nil, gerr
	}
	defer done(&err)

	result = make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	type keyPair struct{ orig, eff string }
	byAddr := make(map[string][]keyPair)

	for _, k := range keys {
		ek, kerr := c.effectiveKey(k)
		if kerr != nil {
			return nil, kerr
		}
		ep, rerr := c.route(ek)
		if rerr != nil {
			return nil, rerr
		}
		byAddr[ep.addr] = append(byAddr[ep.addr], keyPair{orig: k, eff: ek})
	}

	for addr, pairs := range byAddr {
		ep := c.endpointFor(addr)
		if ep == nil {
			continue
		}

		origByEff := make(map[string]string, len(pairs))
		for _, p := range pairs {
			origByEff[p.eff] = p.orig
		}
		effKeys := maps.Keys(origByEff)

		blocks, serr := withSocket(context.Background(), ep, func(wc *wireConn) (map[string][]byte, error) {
			if werr := wc.writeLine(formatGet(effKeys)); werr != nil {
				return nil, werr
			}
			return readValueBlocks(wc)
		})
		if serr != nil {
			logger.Warnf("%s: GetMulti: server %s failed, its keys are absent: %s", libPrefix, addr, serr)
			continue
		}
		for ek, data := range blocks {
			if orig, ok := origByEff[ek]; ok {
				result[orig] = data
			}
		}
	}

	return result, nil
}

// GetRange issues rget to every configured server and merges the results.
// This is NOT a cluster-wide sorted range: each server holds a disjoint
// slice of the keyspace, so the merged map is the union of per-server
// ordered results, not a single global ordering. Any single server's
// failure aborts the whole call, returning an empty map and a warning.
func (c *Client) GetRange(startKey, endKey string, limit int) (result map[string][]byte, err error) {
	done, gerr := c.enter("GetRange")
	if gerr != nil {
		return nil, gerr
	}
	defer done(&err)

	if limit <= 0 {
		limit = defaultGetRangeLimit
	}

	eStart, err := c.effectiveKey(startKey)
	if err != nil {
		return nil, err
	}
	eEnd, err := c.effectiveKey(endKey)
	if err != nil {
		return nil, err
	}

	result = make(map[string][]byte)
	for _, ep := range c.allEndpoints() {
		blocks, serr := withSocket(context.Background(), ep, func(wc *wireConn) (map[string][]byte, error) {
			if werr := wc.writeLine(formatRget([]string{eStart, eEnd}, limit)); werr != nil {
				return nil, werr
			}
			return readValueBlocks(wc)
		})
		if serr != nil {
			logger.Warnf("%s: GetRange: server %s failed, aborting: %s", libPrefix, ep.addr, serr)
			return map[string][]byte{}, nil
		}
		for k, v := range blocks {
			result[k] = v
		}
	}
	return result, nil
}

func (c *Client) store(mode StoreMode, key string, value any, expiry int64, raw bool) (err error) {
	method := "Set"
	if mode == ModeAdd {
		method = "Add"
	}
	done, gerr := c.enter(method)
	if gerr != nil {
		return gerr
	}
	defer done(&err)

	if c.readOnly {
		return ReadOnly
	}

	ek, err := c.effectiveKey(key)
	if err != nil {
		return err
	}

	data, err := c.serialize(value, raw)
	if err != nil {
		return err
	}
	if len(data) > MaxValueSize {
		return fmt.Errorf("%w: value of %d bytes exceeds the %d byte limit", BadArgument, len(data), MaxValueSize)
	}

	_, err = withServer(context.Background(), c, ek, func(wc *wireConn) (struct{}, error) {
		if werr := wc.writeLine(formatStore(mode, ek, expiry, data)); werr != nil {
			return struct{}{}, werr
		}
		line, rerr := wc.readLine()
		if rerr != nil {
			return struct{}{}, rerr
		}
		return struct{}{}, parseStoreReply(line)
	})
	return err
}

// Set stores value under key unconditionally, rejecting if the client is
// read-only or the serialized value exceeds MaxValueSize.
func (c *Client) Set(key string, value any, expiry int64, raw bool) error {
	return c.store(ModeSet, key, value, expiry, raw)
}

// Add stores value under key only if it does not already exist, returning
// ErrNotStored otherwise.
func (c *Client) Add(key string, value any, expiry int64, raw bool) error {
	return c.store(ModeAdd, key, value, expiry, raw)
}

// Delete removes key, returning ErrNotFound if it was absent.
func (c *Client) Delete(key string) (err error) {
	done, gerr := c.enter("Delete")
	if gerr != nil {
		return gerr
	}
	defer done(&err)

	if c.readOnly {
		return ReadOnly
	}

	ek, err := c.effectiveKey(key)
	if err != nil {
		return err
	}

	_, err = withServer(context.Background(), c, ek, func(wc *wireConn) (struct{}, error) {
		if werr := wc.writeLine(formatDelete(ek, 0)); werr != nil {
			return struct{}{}, werr
		}
		line, rerr := wc.readLine()
		if rerr != nil {
			return struct{}{}, rerr
		}
		return struct{}{}, parseDeleteReply(line)
	})
	return err
}

func (c *Client) delta(mode DeltaMode, key string, amount uint64) (val int64, found bool, err error) {
	method := "Incr"
	if mode == Decrement {
		method = "Decr"
	}
	done, gerr := c.enter(method)
	if gerr != nil {
		return 0, false, gerr
	}
	defer done(&err)

	ek, err := c.effectiveKey(key)
	if err != nil {
		return 0, false, err
	}

	type result struct {
		val   int64
		found bool
	}
	r, err := withServer(context.Background(), c, ek, func(wc *wireConn) (result, error) {
		if werr := wc.writeLine(formatDelta(mode, ek, amount)); werr != nil {
			return result{}, werr
		}
		line, rerr := wc.readLine()
		if rerr != nil {
			return result{}, rerr
		}
		n, perr := parseDeltaReply(line)
		if perr != nil {
			if errors.Is(perr, ErrNotFound) {
				return result{found: false}, nil
			}
			return result{}, perr
		}
		return result{val: n, found: true}, nil
	})
	if err != nil {
		return 0, false, err
	}
	return r.val, r.found, nil
}

// Incr adds delta to the counter stored at key, returning the new value.
func (c *Client) Incr(key string, delta uint64) (int64, bool, error) {
	return c.delta(Increment, key, delta)
}

// Decr subtracts delta from the counter stored at key; the server will not
// let the result go below zero.
func (c *Client) Decr(key string, delta uint64) (int64, bool, error) {
	return c.delta(Decrement, key, delta)
}

// FlushAll broadcasts a flush to every live server, sequentially.
func (c *Client) FlushAll() (err error) {
	done, gerr := c.enter("FlushAll")
	if gerr != nil {
		return gerr
	}
	defer done(&err)

	if c.readOnly {
		return ReadOnly
	}

	var alive []*endpoint
	for _, ep := range c.allEndpoints() {
		if ep.alive() {
			alive = append(alive, ep)
		}
	}
	if len(alive) == 0 {
		return NoServersAvailable
	}

	var multiErr error
	for _, ep := range alive {
		_, serr := withSocket(context.Background(), ep, func(wc *wireConn) (struct{}, error) {
			if werr := wc.writeLine(formatFlushAll()); werr != nil {
				return struct{}{}, werr
			}
			line, rerr := wc.readLine()
			if rerr != nil {
				return struct{}{}, rerr
			}
			return struct{}{}, parseOKReply(line)
		})
		if errors.Is(serr, outOfBand) {
			multiErr = errors.Join(multiErr, fmt.Errorf("%s: server unreachable", ep.addr))
		} else if serr != nil {
			multiErr = errors.Join(multiErr, fmt.Errorf("%s: %w", ep.addr, serr))
		}
	}
	return multiErr
}

// Stats queries every live server, skipping dead ones, and fails only if
// none were alive to begin with.
func (c *Client) Stats() (out map[string]map[string]any, err error) {
	done, gerr := c.enter("Stats")
	if gerr != nil {
		return nil, gerr
	}
	defer done(&err)

	out = make(map[string]map[string]any)
	anyAlive := false

	for _, ep := range c.allEndpoints() {
		if !ep.alive() {
			continue
		}
		anyAlive = true

		stats, serr := withSocket(context.Background(), ep, func(wc *wireConn) (map[string]any, error) {
			if werr := wc.writeLine(formatStats()); werr != nil {
				return nil, werr
			}
			m := make(map[string]any)
			for {
				line, rerr := wc.readLine()
				if rerr != nil {
					return nil, rerr
				}
				if line == replyEnd {
					return m, nil
				}
				if isErrorLine(line) {
					return nil, protoErr(line)
				}
				name, val, perr := parseStatLine(line)
				if perr != nil {
					return nil, perr
				}
				m[name] = val
			}
		})
		if serr != nil {
			logger.Warnf("%s: Stats: server %s failed: %s", libPrefix, ep.addr, serr)
			continue
		}
		out[ep.addr] = stats
	}

	if !anyAlive {
		return nil, NoServersAvailable
	}
	return out, nil
}
