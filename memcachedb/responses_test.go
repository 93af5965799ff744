package memcachedb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValueLine(t *testing.T) {
	key, n, err := parseValueLine("VALUE my_namespace:key 0 5")
	require.NoError(t, err)
	assert.Equal(t, "my_namespace:key", key)
	assert.Equal(t, 5, n)
}

func TestParseValueLine_Malformed(t *testing.T) {
	_, _, err := parseValueLine("VALUE only-two-fields 0")
	assert.ErrorIs(t, err, errMalformedReply)
	assert.NotErrorIs(t, err, ProtocolError)

	_, _, err = parseValueLine("VALUE key notanumber 0")
	assert.ErrorIs(t, err, errMalformedReply)
	assert.NotErrorIs(t, err, ProtocolError)

	_, _, err = parseValueLine("VALUE key 0 -5")
	assert.ErrorIs(t, err, errMalformedReply)
}

func TestParseStoreReply(t *testing.T) {
	assert.NoError(t, parseStoreReply("STORED"))
	assert.ErrorIs(t, parseStoreReply("NOT_STORED"), ErrNotStored)
	assert.ErrorIs(t, parseStoreReply("CLIENT_ERROR bad command line format"), ProtocolError)
	assert.ErrorIs(t, parseStoreReply("garbage"), errMalformedReply)
	assert.NotErrorIs(t, parseStoreReply("garbage"), ProtocolError)
}

func TestParseDeleteReply(t *testing.T) {
	assert.NoError(t, parseDeleteReply("DELETED"))
	assert.ErrorIs(t, parseDeleteReply("NOT_FOUND"), ErrNotFound)
	assert.ErrorIs(t, parseDeleteReply("SERVER_ERROR out of memory"), ProtocolError)
}

func TestParseDeltaReply(t *testing.T) {
	n, err := parseDeltaReply("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	// memcachedb is known to pad the decr reply with a trailing space.
	n, err = parseDeltaReply("42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = parseDeltaReply("NOT_FOUND")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = parseDeltaReply("CLIENT_ERROR cannot increment or decrement non-numeric value")
	assert.ErrorIs(t, err, ProtocolError)
}

func TestParseOKReply(t *testing.T) {
	assert.NoError(t, parseOKReply("OK"))
	assert.ErrorIs(t, parseOKReply("ERROR"), ProtocolError)
}

func TestParseStatLine(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		want     any
	}{
		{"STAT pid 20188", "pid", int64(20188)},
		{"STAT total_items 32", "total_items", int64(32)},
		{"STAT version 1.2.3", "version", "1.2.3"},
		{"STAT rusage_user 1:300", "rusage_user", 1.0003},
		{"STAT dummy ok", "dummy", "ok"},
	}
	for _, tt := range tests {
		name, val, err := parseStatLine(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.wantName, name)
		assert.Equal(t, tt.want, val)
	}
}

func TestParseStatLine_Malformed(t *testing.T) {
	_, _, err := parseStatLine("not a stat line")
	assert.True(t, errors.Is(err, errMalformedReply))
	assert.False(t, errors.Is(err, ProtocolError))
}

func TestParseRusage(t *testing.T) {
	assert.Equal(t, 1.0003, parseRusage("1:300"))
	assert.Equal(t, 5.0, parseRusage("5"))
}
