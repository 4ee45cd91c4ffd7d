// Package pump moves bytes from a source to a sink one non-blocking step at a
// time. It is meant to be driven from a polling loop instead of owning a
// goroutine.
package pump

import (
	"errors"
	"io"
	"log/slog"
)

// DefaultBufferSize is the size of the per-attempt read buffer.
const DefaultBufferSize = 4096

// Poller is implemented by sources that can tell how many bytes a Read would
// return without blocking. A non-nil error marks the end of the source.
type Poller interface {
	Available() (int, error)
}

// Attempt describes the outcome of one Pump call.
type Attempt struct {
	// N is the number of bytes moved to the sink.
	N int

	// Err is the read or write error that ended the pump, or nil. io.EOF
	// marks a regular end of stream.
	Err error
}

// Done reports whether this attempt ended the pump.
func (a Attempt) Done() bool {
	return a.Err != nil
}

// Pump copies from src to dst. Sources that implement Poller are asked
// first, so a Pump never calls Read on a source that has nothing to give.
// Plain io.Readers are read directly and must not block.
type Pump struct {
	src       io.Reader
	dst       io.Writer
	buf       []byte
	onAttempt func(Attempt)
	done      bool
	err       error
	total     int64
}

// New creates a pump. onAttempt may be nil.
func New(src io.Reader, dst io.Writer, onAttempt func(Attempt)) *Pump {
	return &Pump{
		src:       src,
		dst:       dst,
		buf:       make([]byte, DefaultBufferSize),
		onAttempt: onAttempt,
	}
}

// Pump performs one read attempt and, if bytes were read, one write. The
// hook runs exactly once per call. Once the source reported EOF or failed,
// further calls do nothing.
func (p *Pump) Pump() {
	if p.done {
		return
	}

	attempt := p.step()
	if attempt.Err != nil {
		p.done = true
		p.err = attempt.Err
		if !errors.Is(attempt.Err, io.EOF) {
			// Any other failure ends the stream like EOF does.
			slog.Debug("Pump source failed, treating as end of stream", "error", attempt.Err, "total", p.total)
		}
	}
	p.total += int64(attempt.N)

	if p.onAttempt != nil {
		p.onAttempt(attempt)
	}
}

func (p *Pump) step() Attempt {
	limit := len(p.buf)
	if poller, ok := p.src.(Poller); ok {
		avail, err := poller.Available()
		if err != nil {
			return Attempt{Err: err}
		}
		if avail == 0 {
			return Attempt{}
		}
		if avail < limit {
			limit = avail
		}
	}

	n, err := p.src.Read(p.buf[:limit])
	if n > 0 {
		if _, werr := p.dst.Write(p.buf[:n]); werr != nil {
			return Attempt{Err: werr}
		}
	}
	return Attempt{N: n, Err: err}
}

// Done reports whether the source has ended.
func (p *Pump) Done() bool {
	return p.done
}

// Err returns the error that ended the pump, or nil while it is running.
func (p *Pump) Err() error {
	return p.err
}

// Total returns the number of bytes moved so far.
func (p *Pump) Total() int64 {
	return p.total
}
