package utils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaticAddr(t *testing.T) {
	tcpAddr := &net.TCPAddr{
		IP:   net.IPv4(127, 0, 0, 1),
		Port: 8080,
	}
	staticAddr := newStaticAddr(tcpAddr)
	assert.Equal(t, tcpAddr.Network(), staticAddr.Network())
	assert.Equal(t, tcpAddr.String(), staticAddr.String())
}

func TestResolveAddr(t *testing.T) {
	tests := []struct {
		name    string
		server  string
		want    net.Addr
		wantErr bool
	}{
		{
			name:    "invalid address",
			server:  "invalid-address",
			wantErr: true,
		},
		{
			name:   "tcp",
			server: "127.0.0.1:8080",
			want:   &staticAddr{ntw: "tcp", str: "127.0.0.1:8080"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAddr(tt.server)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseServerSpec(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    ServerSpec
		wantErr bool
	}{
		{
			name: "host only",
			in:   "cache1.example.com",
			want: ServerSpec{Host: "cache1.example.com", Port: DefaultPort, Weight: DefaultWeight},
		},
		{
			name: "host and port",
			in:   "cache1.example.com:21202",
			want: ServerSpec{Host: "cache1.example.com", Port: 21202, Weight: DefaultWeight},
		},
		{
			name: "host port and weight",
			in:   "cache1.example.com:21202:5",
			want: ServerSpec{Host: "cache1.example.com", Port: 21202, Weight: 5},
		},
		{
			name: "zero weight falls back to default",
			in:   "cache1.example.com:21202:0",
			want: ServerSpec{Host: "cache1.example.com", Port: 21202, Weight: DefaultWeight},
		},
		{
			name:    "bad port",
			in:      "cache1.example.com:abc",
			wantErr: true,
		},
		{
			name:    "too many parts",
			in:      "cache1.example.com:21202:5:6",
			wantErr: true,
		},
		{
			name:    "empty host",
			in:      "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServerSpec(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseServerSpecs(t *testing.T) {
	specs, err := ParseServerSpecs([]string{"a:1:1", "b:2:2"})
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "a:1", specs[0].Addr())
	assert.Equal(t, "b:2", specs[1].Addr())

	_, err = ParseServerSpecs([]string{"a:1:1", "bad:not-a-port"})
	assert.Error(t, err)
}
