// Package session runs a scripted process for a test or a replay: the
// scripted stream is the process's stdout, a signal channel is its stdin and
// a timed line reader turns the output into lines.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"procsim/pkg/clock"
	"procsim/pkg/lineread"
	"procsim/pkg/outputlog"
	"procsim/pkg/scripted"
	"procsim/pkg/signalchan"
)

type Config struct {
	Script    scripted.Script
	Echo      bool
	BaseDelay time.Duration

	// Deadline bounds each ReadLine. Zero means lineread.DefaultDeadline.
	Deadline     time.Duration
	BlockOnEmpty bool
	PollInterval time.Duration

	// Transcript receives an output log of the session when set.
	Transcript io.Writer

	Clock clock.Clock
}

type Session struct {
	stream *scripted.Stream
	stdin  *signalchan.Channel
	lines  *lineread.Reader
	log    *outputlog.OutputLogIoWriter

	deadline time.Duration
	closed   bool
}

// Start wires up a session. Nothing runs in the background except the
// transcript writer.
func Start(cfg Config) *Session {
	s := &Session{stdin: signalchan.New(), deadline: cfg.Deadline}
	if s.deadline <= 0 {
		s.deadline = lineread.DefaultDeadline
	}

	opts := scripted.Options{
		Echo:         cfg.Echo,
		BaseDelay:    cfg.BaseDelay,
		PollInterval: cfg.PollInterval,
		Input:        s.stdin,
		Clock:        cfg.Clock,
	}
	if cfg.Transcript != nil {
		s.log = outputlog.NewOutputLogWriter(cfg.Transcript, cfg.Clock)
		opts.Recorder = s.log
	}
	s.stream = scripted.New(cfg.Script, opts)
	s.lines = lineread.New(s.stream, lineread.Options{
		Deadline:     cfg.Deadline,
		BlockOnEmpty: cfg.BlockOnEmpty,
		PollInterval: cfg.PollInterval,
		Clock:        cfg.Clock,
	})

	slog.Debug("Session started", "chunks", len(cfg.Script), "prompts", cfg.Script.Prompts(), "echo", cfg.Echo)
	return s
}

// ReadLine returns the next line of output, a partial line at the
// deadline, or io.EOF when the process has finished.
func (s *Session) ReadLine() (string, error) {
	return s.lines.ReadLine()
}

// ReadLineTimeout is ReadLine with an explicit deadline.
func (s *Session) ReadLineTimeout(d time.Duration) (string, error) {
	return s.lines.ReadLineTimeout(d)
}

// Enter types line followed by a newline.
func (s *Session) Enter(line string) error {
	return s.Send([]byte(line + "\n"))
}

// Send writes raw bytes to the process's stdin. It may be called from any
// goroutine.
func (s *Session) Send(p []byte) error {
	if err := s.stdin.Yield(p); err != nil {
		return fmt.Errorf("failed to send input: %w", err)
	}
	return nil
}

// AwaitingInput reports whether the process is stopped at a prompt.
func (s *Session) AwaitingInput() bool {
	return s.stream.State() == scripted.BlockedOnPrompt
}

// Partial reports whether the last line returned was cut by the deadline.
func (s *Session) Partial() bool {
	return s.lines.Partial()
}

// Lines reads until the end of output. Deadline expirations without output
// are skipped, so the loop only ends at EOF or when ctx is done.
func (s *Session) Lines(ctx context.Context) ([]string, error) {
	var lines []string
	for {
		line, err := s.lines.ReadLineContext(ctx, s.deadline)
		switch {
		case err == nil:
			lines = append(lines, line)
		case errors.Is(err, io.EOF):
			return lines, nil
		case errors.Is(err, lineread.ErrDeadline) && ctx.Err() == nil:
			continue
		default:
			return lines, err
		}
	}
}

// Close stops the process and flushes the transcript.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.stream.Close()
	_ = s.stdin.Close()
	if s.log != nil {
		if err := s.log.Close(); err != nil {
			return fmt.Errorf("failed to write transcript: %w", err)
		}
	}
	return nil
}
