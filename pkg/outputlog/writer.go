package outputlog

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"procsim/pkg/clock"
)

type OutputLogWriter interface {
	// StreamWriter returns an io.Writer whose writes become records of the
	// given stream. Timestamps are added automatically.
	StreamWriter(stream string) io.Writer

	// Record adds one record. It satisfies scripted.Recorder.
	Record(stream string, p []byte)

	// Close flushes pending records and returns the first write error.
	Close() error
}

// OutputLogIoWriter serializes records from any number of goroutines onto
// one io.Writer. A single goroutine owns the io.Writer.
type OutputLogIoWriter struct {
	clk    clock.Clock
	chunks chan Chunk
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
	err    error
}

var _ OutputLogWriter = &OutputLogIoWriter{}

// NewOutputLogWriter starts a writer on w. Timestamps come from clk; a nil
// clk means the wall clock.
func NewOutputLogWriter(w io.Writer, clk clock.Clock) *OutputLogIoWriter {
	o := &OutputLogIoWriter{
		clk:    clock.Or(clk),
		chunks: make(chan Chunk, 100),
		done:   make(chan struct{}),
	}
	go o.run(w)
	return o
}

func (o *OutputLogIoWriter) run(w io.Writer) {
	defer close(o.done)
	for chunk := range o.chunks {
		if o.err != nil {
			continue
		}
		if _, err := w.Write(FormatChunk(chunk)); err != nil {
			slog.Error("Failed to write output log record", "stream", chunk.Stream, "error", err)
			o.err = err
		}
	}
}

func (o *OutputLogIoWriter) StreamWriter(stream string) io.Writer {
	return &streamWriter{stream: stream, out: o}
}

func (o *OutputLogIoWriter) Record(stream string, p []byte) {
	if len(p) == 0 {
		return
	}
	o.send(Chunk{
		Stream:    stream,
		Timestamp: o.clk.Now().UTC(),
		Line:      append([]byte(nil), p...),
	})
}

// send drops records that arrive after Close.
func (o *OutputLogIoWriter) send(chunk Chunk) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return false
	}
	o.chunks <- chunk
	return true
}

func (o *OutputLogIoWriter) Close() error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.chunks)
	}
	o.mu.Unlock()

	<-o.done
	return o.err
}

type streamWriter struct {
	stream string
	out    *OutputLogIoWriter
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	if !ValidStream(sw.stream) {
		return 0, fmt.Errorf("invalid stream name %q", sw.stream)
	}
	if len(p) == 0 {
		return 0, nil
	}
	chunk := Chunk{
		Stream:    sw.stream,
		Timestamp: sw.out.clk.Now().UTC(),
		Line:      append([]byte(nil), p...),
	}
	if !sw.out.send(chunk) {
		return 0, io.ErrClosedPipe
	}
	return len(p), nil
}
