package ringbuf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	buf, err := New(64, 0)
	require.NoError(t, err)
	r, err := buf.AddReader()
	require.NoError(t, err)
	w := buf.Writer()

	require.NoError(t, w.WaitAvailable(4, 0))
	dst := w.Buffer()
	copy(dst, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	w.Commit(4)

	require.NoError(t, r.WaitAvailable(4, 0))
	got := append([]byte(nil), r.Buffer()[:4]...)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, got)
	r.Commit(4)
}

func TestMirrorEquivalence(t *testing.T) {
	buf, err := New(8, 0)
	require.NoError(t, err)
	w := buf.Writer()
	r, err := buf.AddReader()
	require.NoError(t, err)

	// Write and drain 6 bytes, then write 4 more across the capacity seam
	// to force a wraparound mirror.
	require.NoError(t, w.WaitAvailable(6, 0))
	copy(w.Buffer(), []byte{1, 2, 3, 4, 5, 6})
	w.Commit(6)

	r.Commit(6) // drain without reading, just advance the cursor

	require.NoError(t, w.WaitAvailable(4, 0))
	copy(w.Buffer(), []byte{7, 8, 9, 10})
	w.Commit(4)

	mem := buf.store.Bytes()
	c := int(buf.Capacity())
	for i := 0; i < c; i++ {
		require.Equalf(t, mem[i], mem[i+c], "mirror mismatch at index %d", i)
	}
}

func TestFullAndEmptyBoundaries(t *testing.T) {
	buf, err := New(8, 1)
	require.NoError(t, err)
	r, err := buf.AddReader()
	require.NoError(t, err)
	w := buf.Writer()

	require.Equal(t, uint32(7), w.Available()) // capacity - 1, empty
	require.Equal(t, uint32(0), r.Available())

	copy(w.Buffer(), make([]byte, 7))
	w.Commit(7)
	require.Equal(t, uint32(0), w.Available()) // full
	require.Equal(t, uint32(7), r.Available())

	r.Commit(7)
	require.Equal(t, uint32(7), w.Available())
	require.Equal(t, uint32(0), r.Available())
}

func TestEndOfStreamPropagation(t *testing.T) {
	buf, err := New(16, 0)
	require.NoError(t, err)
	r, err := buf.AddReader()
	require.NoError(t, err)
	w := buf.Writer()

	done := make(chan error, 1)
	go func() {
		done <- r.WaitAvailable(1, time.Second)
	}()

	w.Close()
	require.ErrorIs(t, <-done, ErrEndOfStream)
}

func TestBrokenStreamPropagation(t *testing.T) {
	buf, err := New(8, 1)
	require.NoError(t, err)
	r, err := buf.AddReader()
	require.NoError(t, err)
	w := buf.Writer()

	copy(w.Buffer(), make([]byte, 7))
	w.Commit(7) // fill the buffer so the writer would otherwise block

	done := make(chan error, 1)
	go func() {
		done <- w.WaitAvailable(1, time.Second)
	}()

	r.Close()
	require.ErrorIs(t, <-done, ErrBrokenStream)
}

func TestWaitAvailableTimeout(t *testing.T) {
	buf, err := New(8, 1)
	require.NoError(t, err)
	r, err := buf.AddReader()
	require.NoError(t, err)

	err = r.WaitAvailable(1, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestTooManyReaders(t *testing.T) {
	buf, err := New(8, MaxReaders)
	require.NoError(t, err)
	for i := 0; i < MaxReaders; i++ {
		_, err := buf.AddReader()
		require.NoError(t, err)
	}
	_, err = buf.AddReader()
	require.Error(t, err)
}
