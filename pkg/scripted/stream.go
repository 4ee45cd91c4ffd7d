// Package scripted simulates the output side of an interactive process.
//
// A Stream plays a Script of chunks. Each chunk becomes visible once its
// delay has passed; a prompt chunk holds the stream until input arrives.
// Input comes from Options.Input (usually a signalchan.Channel acting as the
// process's stdin) or from Stream.Input. In echo mode the answer is played
// back as output in place of the prompt, like a terminal echoing keystrokes.
//
// Every operation polls; the only waiting done is in short sleeps between
// polls inside Read.
package scripted

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"procsim/pkg/clock"
	"procsim/pkg/reclaim"
)

const DefaultPollInterval = 10 * time.Millisecond

var (
	// ErrClosed is returned by Input and Available after Close.
	ErrClosed = errors.New("scripted: stream closed")

	// ErrIndex is returned by ReadInto for an invalid offset or length.
	ErrIndex = errors.New("scripted: index out of range")
)

// Recorder receives the bytes a stream hands out (stream "stdout") and the
// input it consumes (stream "stdin").
type Recorder interface {
	Record(stream string, p []byte)
}

type Options struct {
	// Echo plays answered input back as output.
	Echo bool

	// BaseDelay is added to the delay of every chunk except prompts and
	// echoed input.
	BaseDelay time.Duration

	// PollInterval is the sleep between two polls in Read. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration

	// Input is drained without blocking on every poll. Read errors,
	// including io.EOF, stop the draining.
	Input io.Reader

	Recorder Recorder
	Clock    clock.Clock
}

// Stream is safe for one reading goroutine. Close may be called from any
// goroutine.
type Stream struct {
	opts Options
	clk  clock.Clock

	script  Script
	offset  int
	current bool
	since   time.Time
	until   time.Time

	input     *reclaim.Buffer
	inputDone bool
	scratch   []byte

	closed    atomic.Bool
	exhausted bool
}

// New creates a stream playing script. The script is copied; negative delays
// count as zero.
func New(script Script, opts Options) *Stream {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.BaseDelay < 0 {
		opts.BaseDelay = 0
	}
	own := make(Script, 0, len(script))
	for _, c := range script {
		if c.Delay < 0 {
			c.Delay = 0
		}
		own = append(own, c)
	}
	return &Stream{
		opts:    opts,
		clk:     clock.Or(opts.Clock),
		script:  own,
		input:   reclaim.New(64),
		scratch: make([]byte, 512),
	}
}

// State evaluates the script at the current time and returns the state.
func (s *Stream) State() State {
	return s.poll()
}

// WaitingUntil returns the moment the head chunk becomes readable. It is
// only meaningful while State is WaitingOut.
func (s *Stream) WaitingUntil() time.Time {
	return s.until
}

// Available returns the number of bytes of the head chunk that can be read
// without waiting. It returns 0 while waiting on a delay or a prompt,
// io.EOF once the script is exhausted and ErrClosed after Close.
func (s *Stream) Available() (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	switch s.poll() {
	case Open:
		return len(s.script[0].Payload) - s.offset, nil
	case Terminated:
		return 0, io.EOF
	default:
		return 0, nil
	}
}

// Read implements io.Reader. It waits by polling until at least one byte
// can be read or the stream terminates, then reads from the head chunk
// only. It returns io.EOF once the stream is exhausted or closed.
func (s *Stream) Read(p []byte) (int, error) {
	return s.ReadContext(context.Background(), p)
}

// ReadContext is Read with a wait that ends when ctx is done.
func (s *Stream) ReadContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		state := s.poll()
		switch state {
		case Terminated:
			return 0, io.EOF
		case Open:
			return s.take(p), nil
		}

		wait := s.opts.PollInterval
		if state == WaitingOut {
			if remaining := s.until.Sub(s.clk.Now()); remaining > 0 && remaining < wait {
				wait = remaining
			}
		}
		if err := s.clk.Sleep(ctx, wait); err != nil {
			return 0, fmt.Errorf("scripted: read interrupted: %w", err)
		}
	}
}

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadInto reads at most n bytes into buf[off:off+n]. It returns the number
// of bytes copied, and io.EOF only if none were copied because the stream
// ended. Invalid bounds return ErrIndex and leave buf untouched.
func (s *Stream) ReadInto(buf []byte, off, n int) (int, error) {
	if off < 0 || n < 0 || off > len(buf) || n > len(buf)-off {
		return 0, fmt.Errorf("%w: offset %d length %d buffer %d", ErrIndex, off, n, len(buf))
	}
	if n == 0 {
		return 0, nil
	}
	return s.Read(buf[off : off+n])
}

// Input queues text as if it had been typed into the process. A waiting
// prompt is answered right away. No line terminator is appended; an answer
// echoed without one continues the prompt's line.
func (s *Stream) Input(text string) error {
	return s.InputBytes([]byte(text))
}

// InputBytes is Input for raw bytes.
func (s *Stream) InputBytes(p []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.input.Write(p); err != nil {
		return fmt.Errorf("failed to queue input: %w", err)
	}
	s.poll()
	return nil
}

// Close terminates the stream regardless of the remaining script. Reads
// return io.EOF from their next poll on. Close is idempotent.
func (s *Stream) Close() error {
	if !s.closed.Swap(true) {
		slog.Debug("Scripted stream closed")
	}
	return nil
}

// poll drains external input and brings the head of the script up to date.
func (s *Stream) poll() State {
	if s.closed.Load() || s.exhausted {
		return Terminated
	}
	s.processInput()

	for {
		if len(s.script) == 0 {
			s.exhausted = true
			slog.Debug("Scripted stream exhausted")
			return Terminated
		}
		head := s.script[0]
		if head.IsPrompt() {
			if s.input.Len() == 0 {
				return BlockedOnPrompt
			}
			s.answerPrompt()
			continue
		}

		now := s.clk.Now()
		if !s.current {
			s.activate(now)
		}
		delay := head.Delay
		if !head.immediate {
			delay += s.opts.BaseDelay
		}
		if until := s.since.Add(delay); now.Before(until) {
			s.until = until
			return WaitingOut
		}
		if s.offset >= len(head.Payload) {
			s.advance()
			continue
		}
		return Open
	}
}

// processInput moves whatever the input source has right now into the
// pending input buffer.
func (s *Stream) processInput() {
	if s.opts.Input == nil || s.inputDone {
		return
	}
	for {
		n, err := s.opts.Input.Read(s.scratch)
		if n > 0 {
			if _, werr := s.input.Write(s.scratch[:n]); werr != nil {
				slog.Debug("Dropping input", "error", werr)
				s.inputDone = true
				return
			}
		}
		if err != nil {
			s.inputDone = true
			return
		}
		if n == 0 {
			return
		}
	}
}

// answerPrompt consumes one answer, a line or everything pending, for the
// prompt at the head of the script.
func (s *Stream) answerPrompt() {
	n := s.input.IndexByte('\n') + 1
	if n == 0 {
		n = s.input.Len()
	}
	answer, _ := s.input.Take(n)
	s.record("stdin", answer)

	if s.opts.Echo {
		s.script[0] = Chunk{Payload: answer, immediate: true}
		s.offset = 0
		s.activate(s.clk.Now())
		slog.Debug("Prompt answered, echoing input", "bytes", len(answer))
		return
	}
	slog.Debug("Prompt answered", "bytes", len(answer))
	s.advance()
}

func (s *Stream) take(p []byte) int {
	head := s.script[0]
	n := copy(p, head.Payload[s.offset:])
	s.offset += n
	s.record("stdout", p[:n])
	if s.offset >= len(head.Payload) {
		s.advance()
	}
	return n
}

// advance drops the head chunk; the next one becomes current now.
func (s *Stream) advance() {
	s.script[0] = Chunk{}
	s.script = s.script[1:]
	s.offset = 0
	s.current = false
	if len(s.script) > 0 && !s.script[0].IsPrompt() {
		s.activate(s.clk.Now())
	}
}

func (s *Stream) activate(now time.Time) {
	s.current = true
	s.since = now
}

func (s *Stream) record(stream string, p []byte) {
	if s.opts.Recorder != nil && len(p) > 0 {
		s.opts.Recorder.Record(stream, append([]byte(nil), p...))
	}
}
