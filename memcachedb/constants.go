// Package memcachedb implements a client for MemcacheDB: it speaks the
// memcached ASCII text protocol plus the rget range-query extension, routes
// keys across a pool of servers via a consistent-hash continuum, and
// tolerates individual backend failures with a bounded failover discipline.
package memcachedb

import "time"

const (
	libPrefix = "memcachedb"

	// DefaultPort is the MemcacheDB default listening port.
	DefaultPort = 21201

	// DefaultWeight is the weight a server is given when none is specified.
	DefaultWeight = 1

	// DefaultTimeout is the default per-I/O (read/write/line-read) timeout.
	DefaultTimeout = 500 * time.Millisecond

	// ConnectTimeout bounds how long a fresh TCP dial may take.
	ConnectTimeout = 250 * time.Millisecond

	// RetryDelay is how long an endpoint stays quarantined after being
	// marked dead.
	RetryDelay = 30 * time.Second

	// MaxKeyLength is the maximum length, in bytes, of an effective
	// (namespaced) key.
	MaxKeyLength = 250

	// MaxValueSize is the maximum size, in bytes, of a value accepted by
	// Set/Add.
	MaxValueSize = 1 << 20 // 1 MiB

	// maxRehashAttempts bounds the routing rehash loop (§4.4). Preserved
	// verbatim per the spec's open-question decision; not configurable.
	maxRehashAttempts = 20

	// defaultSlotAcquireTimeout bounds how long a multithread-mode caller
	// waits to acquire an endpoint's single socket slot.
	defaultSlotAcquireTimeout = 50 * time.Millisecond

	// defaultGetRangeLimit is the default max item count for GetRange.
	defaultGetRangeLimit = 100
)

// ASCII protocol command verbs.
const (
	cmdGet      = "get"
	cmdRget     = "rget"
	cmdSet      = "set"
	cmdAdd      = "add"
	cmdReplace  = "replace"
	cmdDelete   = "delete"
	cmdIncr     = "incr"
	cmdDecr     = "decr"
	cmdFlushAll = "flush_all"
	cmdStats    = "stats"
)

// ASCII protocol reply tokens.
const (
	replyEnd       = "END"
	replyStored    = "STORED"
	replyNotStored = "NOT_STORED"
	replyDeleted   = "DELETED"
	replyNotFound  = "NOT_FOUND"
	replyOK        = "OK"
	replyValue     = "VALUE"
	replyStat      = "STAT"
	replyError     = "ERROR"
	replyClientErr = "CLIENT_ERROR"
	replyServerErr = "SERVER_ERROR"
)

// StoreMode selects which storage command Set-family operations issue.
type StoreMode uint8

const (
	// ModeSet stores the value unconditionally.
	ModeSet StoreMode = iota
	// ModeAdd stores only if the key does not already exist.
	ModeAdd
	// ModeReplace stores only if the key already exists.
	ModeReplace
)

func (m StoreMode) command() string {
	switch m {
	case ModeAdd:
		return cmdAdd
	case ModeReplace:
		return cmdReplace
	default:
		return cmdSet
	}
}

// DeltaMode selects increment or decrement for Delta operations.
type DeltaMode uint8

const (
	// Increment increases the stored counter value.
	Increment DeltaMode = iota
	// Decrement decreases the stored counter value; the server will not
	// let it go below zero.
	Decrement
)

func (m DeltaMode) command() string {
	if m == Decrement {
		return cmdDecr
	}
	return cmdIncr
}
