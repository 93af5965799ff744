package memcachedb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorLine(t *testing.T) {
	assert.True(t, isErrorLine("ERROR"))
	assert.True(t, isErrorLine("CLIENT_ERROR bad command line format"))
	assert.True(t, isErrorLine("SERVER_ERROR out of memory"))
	assert.False(t, isErrorLine("STORED"))
	assert.False(t, isErrorLine("END"))
}

func TestProtoErr(t *testing.T) {
	err := protoErr("CLIENT_ERROR bad data chunk")
	assert.ErrorIs(t, err, ProtocolError)
	assert.Contains(t, err.Error(), "CLIENT_ERROR bad data chunk")
}

func TestResumable(t *testing.T) {
	assert.True(t, resumable(ErrCacheMiss))
	assert.True(t, resumable(ErrNotStored))
	assert.True(t, resumable(ErrNotFound))
	assert.False(t, resumable(ProtocolError))
	assert.False(t, resumable(nil))
}

func TestMalformedErr(t *testing.T) {
	err := malformedErr(`expected END after VALUE block, got bogus`)
	assert.ErrorIs(t, err, errMalformedReply)
	assert.NotErrorIs(t, err, ProtocolError)
	assert.Contains(t, err.Error(), "bogus")
}

func TestWrapOutOfBand(t *testing.T) {
	cause := protoErr("SERVER_ERROR out of memory")
	err := wrapOutOfBand(cause)
	assert.ErrorIs(t, err, outOfBand)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, cause.Error(), err.Error())
}
