package session

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"procsim/internal/scriptfile"
	"procsim/pkg/clock"
	"procsim/pkg/scripted"
)

func TestReplay_QueuedInput(t *testing.T) {
	s := Start(Config{Script: loginScript(), Deadline: time.Second, Clock: clock.NewFake(t0)})
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Enter("password"))

	var out bytes.Buffer
	require.NoError(t, s.Replay(context.Background(), &out, nil))
	require.Equal(t, "Welcome!\nPassword? \nCorrect!\n", out.String())
}

func TestReplay_Answer(t *testing.T) {
	s := Start(Config{Script: loginScript(), Echo: true, Deadline: time.Second, Clock: clock.NewFake(t0)})
	defer func() { _ = s.Close() }()

	var prompts []string
	answer := func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "pw", nil
	}

	var out bytes.Buffer
	require.NoError(t, s.Replay(context.Background(), &out, answer))
	require.Equal(t, "Welcome!\nPassword? pw\n\nCorrect!\n", out.String())
	require.Equal(t, []string{"Password? "}, prompts)
}

func TestReplay_NoInput(t *testing.T) {
	s := Start(Config{Script: loginScript(), Deadline: time.Second, Clock: clock.NewFake(t0)})
	defer func() { _ = s.Close() }()

	var out bytes.Buffer
	err := s.Replay(context.Background(), &out, nil)
	require.ErrorIs(t, err, ErrNoInput)
	require.Equal(t, "Welcome!\nPassword? ", out.String())
}

func TestReplay_AnswerError(t *testing.T) {
	s := Start(Config{Script: loginScript(), Deadline: time.Second, Clock: clock.NewFake(t0)})
	defer func() { _ = s.Close() }()

	boom := errors.New("boom")
	err := s.Replay(context.Background(), &bytes.Buffer{}, func(string) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
}

func TestReplay_ShippedScripts(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"login.yaml", "Welcome!\nPassword? \nCorrect!\n"},
		{"progress.yaml", "Install? [y/N] y\nDone.\n"},
		{"banner.json", "-- binary header above --\nbye\n"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			file, err := scriptfile.Load(filepath.Join("..", "..", "scripts", tt.path))
			require.NoError(t, err)

			opts := file.Options()
			s := Start(Config{
				Script:    file.Script(),
				Echo:      opts.Echo,
				BaseDelay: opts.BaseDelay,
				Deadline:  2 * time.Second,
				Clock:     clock.NewFake(t0),
			})
			defer func() { _ = s.Close() }()
			for _, in := range append(file.Inputs, "y") {
				require.NoError(t, s.Enter(in))
			}

			var out bytes.Buffer
			require.NoError(t, s.Replay(context.Background(), &out, nil))
			require.True(t, strings.HasSuffix(out.String(), tt.want), out.String())
		})
	}
}

func TestReplay_LateTerminator(t *testing.T) {
	s := Start(Config{
		Script: scripted.Script{
			scripted.Text(0, "Loading..."),
			scripted.Text(2*time.Second, "\n"),
			scripted.Text(0, "Done\n"),
		},
		Deadline: time.Second,
		Clock:    clock.NewFake(t0),
	})
	defer func() { _ = s.Close() }()

	var out bytes.Buffer
	require.NoError(t, s.Replay(context.Background(), &out, nil))
	require.Equal(t, "Loading...\nDone\n", out.String())
}

func TestReplay_ProgressPartials(t *testing.T) {
	s := Start(Config{
		Script: scripted.Script{
			scripted.Text(0, "50%"),
			scripted.Text(2*time.Second, "\r"),
			scripted.Text(0, "100%"),
			scripted.Text(2*time.Second, "\n"),
		},
		Deadline: time.Second,
		Clock:    clock.NewFake(t0),
	})
	defer func() { _ = s.Close() }()

	var out bytes.Buffer
	require.NoError(t, s.Replay(context.Background(), &out, nil))
	require.Equal(t, "50%\n100%\n", out.String())
}

func TestReplay_AnswerWithoutEcho(t *testing.T) {
	s := Start(Config{Script: loginScript(), Deadline: time.Second, Clock: clock.NewFake(t0)})
	defer func() { _ = s.Close() }()

	var out bytes.Buffer
	require.NoError(t, s.Replay(context.Background(), &out, func(string) (string, error) { return "pw", nil }))
	require.Equal(t, "Welcome!\nPassword? \nCorrect!\n", out.String())
}
