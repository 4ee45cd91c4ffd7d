// Package lineread reads lines from a byte source under a per-call deadline.
//
// When the deadline expires before a terminator arrives, ReadLine returns the
// partial line collected so far. The reader remembers that it did, so the
// terminator that later completes that line does not produce an extra empty
// line. This is what makes prompts without a trailing newline ("Password? ")
// observable to a caller that reads line by line.
//
// Recognized terminators are "\n", "\r\n" and a bare "\r". A CRLF pair counts
// as one terminator even when its two bytes arrive in different reads.
package lineread

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"procsim/pkg/clock"
	"procsim/pkg/pump"
	"procsim/pkg/reclaim"
)

const (
	DefaultDeadline     = 5 * time.Second
	DefaultPollInterval = 10 * time.Millisecond
)

var (
	// ErrDeadline is returned when the deadline elapsed with nothing buffered
	// and BlockOnEmpty is off.
	ErrDeadline = errors.New("lineread: deadline elapsed without data")

	// ErrInterrupted is returned when the caller's context ended a wait
	// before the deadline.
	ErrInterrupted = errors.New("lineread: wait interrupted")
)

type Options struct {
	// Deadline bounds ReadLine. Zero means DefaultDeadline.
	Deadline time.Duration

	// BlockOnEmpty keeps ReadLine waiting past the deadline while nothing at
	// all has been buffered. With it off, ReadLine returns ErrDeadline.
	BlockOnEmpty bool

	// PollInterval is the sleep between two empty polls of the source. Zero
	// means DefaultPollInterval.
	PollInterval time.Duration

	Clock clock.Clock
}

// Reader is not safe for concurrent use.
type Reader struct {
	opts    Options
	clk     clock.Clock
	pump    *pump.Pump
	pending *reclaim.Buffer

	line   []byte
	ready  []string
	forced bool
	skipLF bool
	eof    bool

	// terminated is set when the terminator of a returned partial line is
	// swallowed; ended is its value as of the last returned line.
	terminated bool
	ended      bool
}

// New creates a reader over src. src should not block; sources implementing
// pump.Poller (signalchan.Channel, scripted.Stream) are polled first.
func New(src io.Reader, opts Options) *Reader {
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	r := &Reader{
		opts:    opts,
		clk:     clock.Or(opts.Clock),
		pending: reclaim.New(256),
	}
	r.pump = pump.New(src, r.pending, r.assemble)
	return r
}

// ReadLine returns the next line using the configured deadline. It returns
// io.EOF once the source has ended and every buffered byte was returned.
func (r *Reader) ReadLine() (string, error) {
	return r.ReadLineContext(context.Background(), r.opts.Deadline)
}

// ReadLineTimeout is ReadLine with an explicit deadline.
func (r *Reader) ReadLineTimeout(deadline time.Duration) (string, error) {
	return r.ReadLineContext(context.Background(), deadline)
}

// ReadLineContext is ReadLine with an explicit deadline whose waits can be
// interrupted through ctx.
func (r *Reader) ReadLineContext(ctx context.Context, deadline time.Duration) (string, error) {
	line, err := r.readLine(ctx, deadline)
	if err == nil || errors.Is(err, io.EOF) {
		r.ended, r.terminated = r.terminated, false
	}
	return line, err
}

func (r *Reader) readLine(ctx context.Context, deadline time.Duration) (string, error) {
	latest := r.clk.Now().Add(deadline)
	for {
		if line, ok := r.popReady(); ok {
			return line, nil
		}
		if r.eof {
			return r.flush()
		}

		r.pump.Pump()
		if len(r.ready) > 0 || r.eof {
			continue
		}

		now := r.clk.Now()
		if !now.Before(latest) {
			if len(r.line) > 0 {
				return r.partial(), nil
			}
			if !r.opts.BlockOnEmpty {
				return "", ErrDeadline
			}
		}

		wait := r.opts.PollInterval
		if remaining := latest.Sub(now); remaining > 0 && remaining < wait {
			wait = remaining
		}
		if err := r.clk.Sleep(ctx, wait); err != nil {
			if r.clk.Now().Before(latest) {
				return "", fmt.Errorf("%w: %w", ErrInterrupted, err)
			}
			if len(r.line) > 0 {
				return r.partial(), nil
			}
			return "", fmt.Errorf("%w: %w", ErrDeadline, err)
		}
	}
}

// Pending returns the bytes collected for the current, unterminated line.
func (r *Reader) Pending() string {
	return string(r.line)
}

// Partial reports whether the last returned line was cut by the deadline.
func (r *Reader) Partial() bool {
	return r.forced
}

// Ended reports whether the previous partial line was terminated before the
// line, or io.EOF, just returned. That terminator produces no line of its
// own, so this is the only way to observe it.
func (r *Reader) Ended() bool {
	return r.ended
}

func (r *Reader) popReady() (string, bool) {
	if len(r.ready) == 0 {
		return "", false
	}
	line := r.ready[0]
	r.ready = r.ready[1:]
	return line, true
}

func (r *Reader) partial() string {
	line := string(r.line)
	r.line = r.line[:0]
	r.forced = true
	slog.Debug("Returning partial line at deadline", "line", line)
	return line
}

func (r *Reader) flush() (string, error) {
	if len(r.line) == 0 {
		return "", io.EOF
	}
	line := string(r.line)
	r.line = r.line[:0]
	r.forced = false
	return line, nil
}

// assemble is the pump hook: it splits everything pumped so far into lines.
func (r *Reader) assemble(a pump.Attempt) {
	for _, c := range r.pending.Bytes() {
		r.feed(c)
	}
	r.pending.Reset()
	if a.Done() {
		r.eof = true
	}
}

func (r *Reader) feed(c byte) {
	if c == '\n' && r.skipLF {
		// Second half of a CRLF whose CR already ended the line.
		r.skipLF = false
		return
	}
	r.skipLF = c == '\r'

	if c != '\n' && c != '\r' {
		r.line = append(r.line, c)
		return
	}
	if len(r.line) == 0 && r.forced {
		// Terminator of a line that was already returned as a partial.
		r.forced = false
		r.terminated = true
		return
	}
	r.forced = false
	r.ready = append(r.ready, string(r.line))
	r.line = r.line[:0]
}
