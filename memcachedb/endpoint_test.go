package memcachedb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint_AliveInitially(t *testing.T) {
	ep := newEndpoint("127.0.0.1", 1, DefaultWeight, DefaultTimeout, false, true)
	assert.True(t, ep.alive())
}

func TestEndpoint_SocketDialFailureMarksDead(t *testing.T) {
	// Nothing listens on port 1 on loopback; dialing it fails immediately.
	ep := newEndpoint("127.0.0.1", 1, DefaultWeight, DefaultTimeout, false, true)

	_, err := ep.socket(context.Background())
	assert.Error(t, err)
	assert.False(t, ep.alive())
	assert.False(t, ep.retryAt.IsZero())
}

func TestEndpoint_QuarantineWindow(t *testing.T) {
	ep := newEndpoint("127.0.0.1", 1, DefaultWeight, DefaultTimeout, false, true)
	ep.markDead(assert.AnError)

	assert.False(t, ep.alive())

	_, err := ep.socket(context.Background())
	assert.ErrorIs(t, err, errQuarantined)
}

func TestEndpoint_CloseConnResetsState(t *testing.T) {
	ep := newEndpoint("127.0.0.1", 1, DefaultWeight, DefaultTimeout, false, true)
	ep.markDead(assert.AnError)
	require.False(t, ep.alive())

	ep.closeConn()
	assert.True(t, ep.alive())
	assert.True(t, ep.retryAt.IsZero())
}

func TestEndpoint_SocketCachesResolvedAddr(t *testing.T) {
	ep := newEndpoint("127.0.0.1", 1, DefaultWeight, DefaultTimeout, false, true)
	assert.Nil(t, ep.resolved)

	_, err := ep.socket(context.Background())
	assert.Error(t, err)
	require.NotNil(t, ep.resolved)
	first := ep.resolved

	ep.closeConn()
	_, err = ep.socket(context.Background())
	assert.Error(t, err)
	assert.Same(t, first, ep.resolved)
}

func TestEndpoint_Server(t *testing.T) {
	ep := newEndpoint("10.0.0.5", 21201, 3, DefaultTimeout, false, true)
	sv := ep.server()
	assert.Equal(t, "10.0.0.5", sv.Host)
	assert.Equal(t, 21201, sv.Port)
	assert.Equal(t, 3, sv.Weight)
	assert.Equal(t, "10.0.0.5:21201", sv.Addr)
}

func TestEndpoint_MultithreadUsesSlot(t *testing.T) {
	ep := newEndpoint("127.0.0.1", 1, DefaultWeight, DefaultTimeout, true, true)
	require.NotNil(t, ep.slot)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := ep.socket(ctx)
	assert.Error(t, err)
}
