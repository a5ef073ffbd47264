package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_Duplex(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	a.SetReadTimeout(time.Second)
	b.SetReadTimeout(time.Second)

	go func() {
		b.Write([]byte("ping"))
	}()

	buf := make([]byte, 4)
	n, err := ReadExact(a, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "ping", string(buf))
}

func TestReadExact_TimeoutReturnsShortCount(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	a.SetReadTimeout(100 * time.Millisecond)

	go func() {
		b.Write([]byte("ab"))
	}()

	start := time.Now()
	buf := make([]byte, 7)
	n, err := ReadExact(a, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReadExact_AccumulatesPartialWrites(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	a.SetReadTimeout(time.Second)

	go func() {
		b.Write([]byte("AC"))
		b.Write([]byte("K\x00\x00\x00\x05"))
	}()

	buf := make([]byte, 7)
	n, err := ReadExact(a, buf)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte("ACK\x00\x00\x00\x05"), buf)
}

func TestReadExact_ClosedLink(t *testing.T) {
	a, b := Pipe()
	a.SetReadTimeout(time.Second)
	b.Close()

	buf := make([]byte, 4)
	_, err := ReadExact(a, buf)
	assert.Error(t, err)
}
