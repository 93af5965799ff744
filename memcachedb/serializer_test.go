package memcachedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawSerializer_Serialize(t *testing.T) {
	b, err := rawSerializer{}.Serialize([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)
}

func TestRawSerializer_Serialize_WrongType(t *testing.T) {
	_, err := rawSerializer{}.Serialize("not a []byte")
	assert.ErrorIs(t, err, BadArgument)
}

func TestRawSerializer_Deserialize(t *testing.T) {
	var dest []byte
	err := rawSerializer{}.Deserialize([]byte("hello"), &dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), dest)
}

func TestRawSerializer_Deserialize_WrongType(t *testing.T) {
	var dest string
	err := rawSerializer{}.Deserialize([]byte("hello"), &dest)
	assert.ErrorIs(t, err, BadArgument)
}
