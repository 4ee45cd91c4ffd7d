package pump

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"procsim/pkg/signalchan"
)

// failingReader returns its data once, then err.
type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) > 0 {
		n := copy(p, f.data)
		f.data = f.data[n:]
		return n, nil
	}
	return 0, f.err
}

// blockingReader fails the test if Read is ever called.
type blockingReader struct {
	t *testing.T
}

func (b blockingReader) Read(p []byte) (int, error) {
	b.t.Fatal("Read called on a source with nothing available")
	return 0, nil
}

func (b blockingReader) Available() (int, error) {
	return 0, nil
}

func TestPump_HookOncePerAttempt(t *testing.T) {
	src := signalchan.New()
	var sink bytes.Buffer
	var attempts []Attempt
	p := New(src, &sink, func(a Attempt) { attempts = append(attempts, a) })

	p.Pump()
	require.NoError(t, src.YieldString("abc"))
	p.Pump()
	require.NoError(t, src.Close())
	p.Pump()

	require.Equal(t, []Attempt{{N: 0}, {N: 3}, {Err: io.EOF}}, attempts)
	require.Equal(t, "abc", sink.String())
	require.True(t, p.Done())
	require.ErrorIs(t, p.Err(), io.EOF)
	require.Equal(t, int64(3), p.Total())
}

func TestPump_NoOpAfterDone(t *testing.T) {
	src := &failingReader{err: io.EOF}
	calls := 0
	p := New(src, io.Discard, func(Attempt) { calls++ })

	p.Pump()
	p.Pump()
	p.Pump()

	require.Equal(t, 1, calls)
	require.True(t, p.Done())
}

func TestPump_ReadErrorEndsPump(t *testing.T) {
	boom := errors.New("boom")
	src := &failingReader{data: []byte("partial"), err: boom}
	var sink bytes.Buffer
	var last Attempt
	p := New(src, &sink, func(a Attempt) { last = a })

	p.Pump()
	require.False(t, p.Done())
	p.Pump()

	require.True(t, p.Done())
	require.ErrorIs(t, last.Err, boom)
	require.True(t, last.Done())
	require.Equal(t, "partial", sink.String())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("sink full")
}

func TestPump_WriteErrorEndsPump(t *testing.T) {
	src := signalchan.New()
	require.NoError(t, src.YieldString("x"))
	p := New(src, failingWriter{}, nil)

	p.Pump()

	require.True(t, p.Done())
	require.EqualError(t, p.Err(), "sink full")
}

func TestPump_PollerSkipsRead(t *testing.T) {
	p := New(blockingReader{t: t}, io.Discard, nil)
	for i := 0; i < 3; i++ {
		p.Pump()
	}
	require.False(t, p.Done())
}

func TestPump_ReadsAtMostAvailable(t *testing.T) {
	src := signalchan.New()
	payload := bytes.Repeat([]byte("z"), DefaultBufferSize+10)
	require.NoError(t, src.Yield(payload))

	var sink bytes.Buffer
	p := New(src, &sink, nil)
	p.Pump()
	require.Equal(t, DefaultBufferSize, sink.Len())
	p.Pump()
	require.Equal(t, payload, sink.Bytes())
}
