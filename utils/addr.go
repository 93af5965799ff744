// Package utils holds small address- and server-spec-parsing helpers used
// by the client facade and its server endpoints.
package utils

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the MemcacheDB default listening port.
const DefaultPort = 21201

// DefaultWeight is the weight assigned to a server spec that does not name
// one explicitly.
const DefaultWeight = 1

// ServerSpec is a parsed (host, port, weight) server descriptor.
type ServerSpec struct {
	Host   string
	Port   int
	Weight int
}

// Addr renders the spec as a "host:port" string, the form used both on the
// wire for dialing and as the continuum's server identity.
func (s ServerSpec) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ParseServerSpec parses a server descriptor of the form "host",
// "host:port", or "host:port:weight". A missing port defaults to
// DefaultPort; a missing or non-positive weight defaults to DefaultWeight.
func ParseServerSpec(s string) (ServerSpec, error) {
	parts := strings.Split(s, ":")

	spec := ServerSpec{Port: DefaultPort, Weight: DefaultWeight}

	switch len(parts) {
	case 1:
		spec.Host = parts[0]
	case 2:
		spec.Host = parts[0]
		port, err := strconv.Atoi(parts[1])
		if err != nil {
			return ServerSpec{}, fmt.Errorf("utils: invalid port in server spec %q: %w", s, err)
		}
		spec.Port = port
	case 3:
		spec.Host = parts[0]
		port, err := strconv.Atoi(parts[1])
		if err != nil {
			return ServerSpec{}, fmt.Errorf("utils: invalid port in server spec %q: %w", s, err)
		}
		spec.Port = port
		weight, err := strconv.Atoi(parts[2])
		if err != nil {
			return ServerSpec{}, fmt.Errorf("utils: invalid weight in server spec %q: %w", s, err)
		}
		if weight > 0 {
			spec.Weight = weight
		}
	default:
		return ServerSpec{}, fmt.Errorf("utils: malformed server spec %q", s)
	}

	if spec.Host == "" {
		return ServerSpec{}, fmt.Errorf("utils: malformed server spec %q", s)
	}

	return spec, nil
}

// ParseServerSpecs parses a slice of server descriptors, in order.
func ParseServerSpecs(servers []string) ([]ServerSpec, error) {
	specs := make([]ServerSpec, 0, len(servers))
	for _, s := range servers {
		spec, err := ParseServerSpec(s)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// staticAddr caches the Network() and String() values from any net.Addr so
// the original resolution error (e.g. a DNS failure at construction time)
// can't resurface later from a stale *net.TCPAddr.
type staticAddr struct {
	ntw, str string
}

func newStaticAddr(a net.Addr) net.Addr {
	return &staticAddr{
		ntw: a.Network(),
		str: a.String(),
	}
}

func (s *staticAddr) Network() string { return s.ntw }
func (s *staticAddr) String() string  { return s.str }

// ResolveAddr resolves a "host:port" string to a net.Addr implementation
// that is safe to retain for the lifetime of an endpoint.
func ResolveAddr(hostport string) (net.Addr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", hostport)
	if err != nil {
		return nil, err
	}
	return newStaticAddr(tcpAddr), nil
}
