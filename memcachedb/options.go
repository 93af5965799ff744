package memcachedb

import "time"

// options accumulates functional-option settings before a Client is built.
type options struct {
	namespace        string
	readOnly         bool
	multithread      bool
	failoverDisabled bool
	timeout          time.Duration
	disableLogger    bool
	disableMetrics   bool
	serializer       Serializer
}

// Option configures a Client at construction time.
type Option func(*options)

// WithNamespace prefixes every key on the wire with "<namespace>:".
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithReadOnly rejects every mutating operation with ReadOnly.
func WithReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

// WithMultithread selects multi-thread mode: a process-wide mutex
// serializes all traffic through the client instead of the default
// single-thread ownership check.
func WithMultithread() Option {
	return func(o *options) { o.multithread = true }
}

// WithFailoverDisabled makes a dead primary server fail the request
// immediately with NoServersAvailable instead of rehashing onto a fallback.
func WithFailoverDisabled() Option {
	return func(o *options) { o.failoverDisabled = true }
}

// WithTimeout sets the per-I/O deadline. By default, DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithDisableLogger silences the library's internal debug/warn logging.
func WithDisableLogger() Option {
	return func(o *options) { o.disableLogger = true }
}

// WithDisableMetrics turns off the prometheus histogram and quarantine
// gauge this library would otherwise record.
//
//	memcachedb_method_duration_seconds
//	memcachedb_quarantined_servers
func WithDisableMetrics() Option {
	return func(o *options) { o.disableMetrics = true }
}

// WithSerializer installs the {serialize, deserialize} pair used by
// non-raw Set/Add/Get-family calls. Without one, those calls require
// raw=true and []byte values.
func WithSerializer(s Serializer) Option {
	return func(o *options) { o.serializer = s }
}
