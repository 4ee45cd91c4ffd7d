package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"procsim/pkg/lineread"
)

// ErrNoInput is returned by Replay when the process waits at a prompt and
// there is nothing left to answer it with.
var ErrNoInput = errors.New("process is waiting for input")

// AnswerFunc supplies the answer to a prompt. prompt is the partial line
// the process printed before it stopped, possibly empty.
type AnswerFunc func(prompt string) (string, error)

// Replay copies the output to out until the process finishes. Complete
// lines are written with a newline, partial lines without one so that an
// echoed answer continues them. When the terminator of a partial line
// arrives later, the newline is written before the next output. When the
// process stops at a prompt and answer is nil, Replay fails with ErrNoInput.
func (s *Session) Replay(ctx context.Context, out io.Writer, answer AnswerFunc) error {
	dangling := false
	endLine := func() error {
		if !dangling || !s.lines.Ended() {
			return nil
		}
		dangling = false
		_, err := fmt.Fprintln(out)
		return err
	}

	for {
		line, err := s.lines.ReadLineContext(ctx, s.deadline)
		if err == nil || errors.Is(err, io.EOF) {
			if err := endLine(); err != nil {
				return err
			}
		}
		switch {
		case err == nil:
			if !s.Partial() {
				dangling = false
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
				continue
			}
			dangling = true
			if _, err := fmt.Fprint(out, line); err != nil {
				return err
			}
			if s.AwaitingInput() && answer != nil {
				if err := s.answer(answer, line); err != nil {
					return err
				}
			}
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, lineread.ErrDeadline) && ctx.Err() == nil:
			if !s.AwaitingInput() {
				continue
			}
			if answer == nil {
				return ErrNoInput
			}
			if err := s.answer(answer, ""); err != nil {
				return err
			}
		default:
			return err
		}
	}
}

func (s *Session) answer(answer AnswerFunc, prompt string) error {
	text, err := answer(prompt)
	if err != nil {
		return fmt.Errorf("failed to read answer: %w", err)
	}
	slog.Debug("Answering prompt", "prompt", prompt)
	return s.Enter(text)
}
