package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/value"
)

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("go-json")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAreWireCompatible(t *testing.T) {
	// Both codecs must produce mutually readable output: a bundle written
	// with one can be opened with the other configured.
	v := value.Object(map[string]value.Value{
		"name":  value.String("strata"),
		"count": value.Int(3),
		"raw":   value.Bytes([]byte{1, 2, 3}),
	})

	data, err := GoJSON{}.Marshal(v)
	require.NoError(t, err)

	var back value.Value
	require.NoError(t, JSON{}.Unmarshal(data, &back))
	assert.True(t, value.Equal(v, back))

	data, err = JSON{}.Marshal(v)
	require.NoError(t, err)
	back = value.Value{}
	require.NoError(t, GoJSON{}.Unmarshal(data, &back))
	assert.True(t, value.Equal(v, back))
}

func TestDefaultIsRegistered(t *testing.T) {
	c, ok := ByName(Default.Name())
	require.True(t, ok)
	assert.Equal(t, Default.Name(), c.Name())
}
