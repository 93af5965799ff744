// Package consistenthash implements the continuum used to route cache keys
// onto a weighted set of servers with minimal redistribution on membership
// changes.
package consistenthash

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is used only to seed the continuum, not for security.
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

const (
	// PointsPerServer is the number of continuum entries assigned per unit
	// of weight, scaled by the number of servers in the ring.
	PointsPerServer = 160
)

type (
	// Server is anything that can be placed on the continuum: an address
	// plus a weight used to proportion its share of the keyspace.
	Server struct {
		Addr   string
		Weight int
	}

	// Entry is one point on the continuum.
	Entry struct {
		Hash   uint32
		Server Server
	}

	// Continuum is a sorted ring of (hash, server) entries built from a
	// weighted server list. It is safe for concurrent use.
	Continuum struct {
		mu      sync.RWMutex
		entries []Entry
		servers []Server
	}
)

// New builds a Continuum from the given weighted server list. Servers with
// weight <= 0 are treated as weight 1. With fewer than two servers the
// continuum is left empty and Lookup always returns -1; with exactly one
// server, SoleServer reports it so the caller can route every key there.
func New(servers []Server) *Continuum {
	c := &Continuum{}
	c.Rebuild(servers)
	return c
}

// Rebuild atomically replaces the continuum's entries for the given weighted
// server list. It is the mechanism behind Client.SetServers.
func (c *Continuum) Rebuild(servers []Server) {
	normalized := make([]Server, len(servers))
	copy(normalized, servers)
	for i := range normalized {
		if normalized[i].Weight <= 0 {
			normalized[i].Weight = 1
		}
	}

	var entries []Entry
	if len(normalized) >= 2 {
		entries = buildEntries(normalized)
	}

	c.mu.Lock()
	c.entries = entries
	c.servers = normalized
	c.mu.Unlock()
}

func buildEntries(servers []Server) []Entry {
	var totalWeight int
	for _, s := range servers {
		totalWeight += s.Weight
	}
	if totalWeight <= 0 {
		return nil
	}

	n := len(servers)
	entries := make([]Entry, 0, n*PointsPerServer)

	for _, s := range servers {
		count := n * PointsPerServer * s.Weight / totalWeight
		for i := 0; i < count; i++ {
			h := entryHash(s.Addr, i)
			entries = append(entries, Entry{Hash: h, Server: s})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Hash < entries[j].Hash
	})

	return entries
}

// entryHash is the first 32 bits, as a big-endian unsigned integer, of
// SHA1("addr:i").
func entryHash(addr string, i int) uint32 {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s:%d", addr, i))) //nolint:gosec
	return binary.BigEndian.Uint32(sum[:4])
}

// Servers returns the weighted server list the continuum was built from.
func (c *Continuum) Servers() []Server {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Server, len(c.servers))
	copy(out, c.servers)
	return out
}

// Len reports the number of servers the continuum currently holds.
func (c *Continuum) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.servers)
}

// SoleServer returns the only configured server and true when exactly one
// server is configured (the degenerate case where no ring is built).
func (c *Continuum) SoleServer() (Server, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.servers) == 1 {
		return c.servers[0], true
	}
	return Server{}, false
}

// Lookup returns the index into the continuum of the entry with the largest
// Hash <= h. If h is smaller than every entry's hash, Lookup returns -1 (no
// wraparound); the caller's failover logic relies on this to avoid rehashing
// into a uniform slot. If h is larger than every entry's hash, Lookup returns
// the index of the last entry. An empty continuum returns -1.
func (c *Continuum) Lookup(h uint32) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := c.entries
	if len(entries) == 0 {
		return -1
	}

	// upper is the index of the first entry whose Hash is > h; the entry we
	// want is the one immediately before it.
	upper := sort.Search(len(entries), func(i int) bool {
		return entries[i].Hash > h
	})

	return upper - 1
}

// EntryAt returns the server at continuum index idx. It returns false when
// idx is outside [0, len(entries)), including the -1 that Lookup returns.
func (c *Continuum) EntryAt(idx int) (Server, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx < 0 || idx >= len(c.entries) {
		return Server{}, false
	}
	return c.entries[idx].Server, true
}
