package session

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"procsim/pkg/clock"
	"procsim/pkg/outputlog"
	"procsim/pkg/scripted"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func loginScript() scripted.Script {
	return scripted.Script{
		scripted.Text(0, "Welcome!\n"),
		scripted.Text(0, "Password? "),
		scripted.Prompt(),
		scripted.Text(0, "\r"),
		scripted.Text(0, "Correct!\n"),
	}
}

func TestSession_LoginWithEcho(t *testing.T) {
	var transcript bytes.Buffer
	s := Start(Config{
		Script:     loginScript(),
		Echo:       true,
		Deadline:   time.Second,
		Transcript: &transcript,
		Clock:      clock.NewFake(t0),
	})
	require.NoError(t, s.Enter("password"))

	lines, err := s.Lines(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Welcome!", "Password? password", "", "Correct!"}, lines)

	_, err = s.ReadLine()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, s.Close())

	reader, err := outputlog.NewOutputLogReader(&transcript)
	require.NoError(t, err)
	all := reader.All()
	require.Equal(t, "Welcome!\nPassword? password\n\rCorrect!\n", string(all["stdout"]))
	require.Equal(t, "password\n", string(all["stdin"]))
}

func TestSession_LoginWithoutEcho(t *testing.T) {
	s := Start(Config{Script: loginScript(), Deadline: time.Second, Clock: clock.NewFake(t0)})
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Enter("password"))

	lines, err := s.Lines(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Welcome!", "Password? ", "Correct!"}, lines)
}

func TestSession_AnswerAfterPrompt(t *testing.T) {
	s := Start(Config{Script: loginScript(), Echo: true, Deadline: time.Second, Clock: clock.NewFake(t0)})
	defer func() { _ = s.Close() }()

	line, err := s.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "Welcome!", line)

	line, err = s.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "Password? ", line)
	require.True(t, s.Partial())
	require.True(t, s.AwaitingInput())

	require.NoError(t, s.Enter("secret"))
	require.False(t, s.AwaitingInput())

	lines, err := s.Lines(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"secret", "", "Correct!"}, lines)
}

func TestSession_InputFromOtherGoroutine(t *testing.T) {
	s := Start(Config{
		Script:       scripted.Script{scripted.Text(0, "Continue? "), scripted.Prompt(), scripted.Text(0, "bye\n")},
		Echo:         true,
		Deadline:     20 * time.Millisecond,
		PollInterval: time.Millisecond,
	})
	defer func() { _ = s.Close() }()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = s.Enter("yes")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	lines, err := s.Lines(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Continue? ", "yes", "bye"}, lines)
}

func TestSession_LinesStopsWithContext(t *testing.T) {
	s := Start(Config{
		Script:       scripted.Script{scripted.Prompt()},
		Deadline:     10 * time.Millisecond,
		PollInterval: time.Millisecond,
	})
	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Lines(ctx)
	require.Error(t, err)
}

func TestSession_Close(t *testing.T) {
	s := Start(Config{Script: loginScript(), Clock: clock.NewFake(t0)})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.ReadLine()
	require.ErrorIs(t, err, io.EOF)
	require.Error(t, s.Enter("late"))
}
