package serial

import (
	"bytes"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/tickpipe/api"
)

func TestPort_WritesInOrder(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, WithFIFODepth(4))
	require.NoError(t, p.Init(0))
	for _, c := range []byte("Producer/Consumer Example\n") {
		require.NoError(t, p.WriteByte(c))
	}
	require.NoError(t, p.Close())
	assert.Equal(t, "Producer/Consumer Example\n", out.String())
	assert.Equal(t, 0, p.Pending())
}

func TestPort_RequiresInit(t *testing.T) {
	p := New(io.Discard)
	require.ErrorIs(t, p.WriteByte('x'), api.ErrPortNotInitialized)
	require.NoError(t, p.Close())
}

func TestPort_RejectsAfterClose(t *testing.T) {
	p := New(io.Discard)
	require.NoError(t, p.Init(0))
	require.NoError(t, p.Close())
	require.ErrorIs(t, p.WriteByte('x'), api.ErrPortClosed)
	require.ErrorIs(t, p.Init(9600), api.ErrPortClosed)
	require.NoError(t, p.Close(), "close is idempotent")
}

func TestPort_InvalidBaud(t *testing.T) {
	p := New(io.Discard)
	require.ErrorIs(t, p.Init(-1), api.ErrInvalidArgument)
}

func TestPort_BaudPacing(t *testing.T) {
	var out bytes.Buffer
	p := New(&out)
	// 2000 baud at 10 bits per frame is 200 bytes/s.
	require.NoError(t, p.Init(2000))
	start := time.Now()
	for i := 0; i < 21; i++ {
		require.NoError(t, p.WriteByte('a'))
	}
	require.NoError(t, p.Close())
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, 21, out.Len())
}

type gatedWriter struct {
	release chan struct{}
	n       atomic.Int32
}

func (w *gatedWriter) Write(b []byte) (int, error) {
	<-w.release
	w.n.Add(int32(len(b)))
	return len(b), nil
}

func TestPort_BusyWaitsWhileFull(t *testing.T) {
	w := &gatedWriter{release: make(chan struct{})}
	p := New(w)
	require.NoError(t, p.Init(0))
	require.NoError(t, p.WriteByte('1'))

	done := make(chan error, 1)
	go func() { done <- p.WriteByte('2') }()

	select {
	case <-done:
		t.Fatal("WriteByte returned while the transmit register was occupied")
	case <-time.After(30 * time.Millisecond):
	}

	close(w.release)
	require.NoError(t, <-done)
	require.NoError(t, p.Close())
	assert.Equal(t, int32(2), w.n.Load())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("line down") }

func TestPort_WriterErrorSurfaces(t *testing.T) {
	p := New(brokenWriter{})
	require.NoError(t, p.Init(0))
	require.NoError(t, p.WriteByte('x'))
	err := p.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line down")
}
