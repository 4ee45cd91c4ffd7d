package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"procsim/internal/scriptfile"
	"procsim/internal/session"
	"procsim/internal/transcript"
	"procsim/pkg/outputlog"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	verbose bool

	inputs         []string
	echo           bool
	deadline       time.Duration
	blockOnEmpty   bool
	interactive    bool
	transcriptFile string

	asHTML bool
	stream string
)

var rootCmd = &cobra.Command{
	Use:   "procsim",
	Short: "procsim - Replay scripted interactive processes",
	Long: `procsim plays back a script of timed output chunks and input prompts as if
it were a running interactive program, and renders the recorded transcripts.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay SCRIPT",
	Short: "Play back a script file",
	Long: `Play back a YAML or JSON script file line by line on stdout.

Answers for the prompts of the script come from the script's own inputs,
then from --input flags in order. With --interactive, prompts without a
queued answer are answered from the terminal.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := scriptfile.Load(args[0])
		if err != nil {
			return err
		}

		opts := file.Options()
		cfg := session.Config{
			Script:       file.Script(),
			Echo:         opts.Echo || echo,
			BaseDelay:    opts.BaseDelay,
			Deadline:     deadline,
			BlockOnEmpty: blockOnEmpty,
		}
		if transcriptFile != "" {
			f, err := os.Create(transcriptFile)
			if err != nil {
				return fmt.Errorf("failed to create transcript file: %w", err)
			}
			defer func() { _ = f.Close() }()
			cfg.Transcript = f
		}

		s := session.Start(cfg)
		for _, line := range append(file.Inputs, inputs...) {
			if err := s.Enter(line); err != nil {
				_ = s.Close()
				return err
			}
		}

		var answer session.AnswerFunc
		if interactive {
			answer = terminalAnswer(cfg.Echo)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		err = s.Replay(ctx, os.Stdout, answer)
		if cerr := s.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("replay %s failed: %w", file.Name, err)
		}
		return nil
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript FILE",
	Short: "Render a recorded transcript",
	Long: `Render a transcript written by "procsim replay --transcript" as markdown,
or as sanitized HTML with --html. With --stream, only the raw content of
that stream is printed.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open transcript: %w", err)
		}
		defer func() { _ = f.Close() }()

		reader, err := outputlog.NewOutputLogReader(f)
		if err != nil {
			return err
		}

		if stream != "" {
			if !outputlog.ValidStream(stream) {
				return fmt.Errorf("invalid stream name %q", stream)
			}
			_, err := io.Copy(os.Stdout, reader.StreamReader(stream))
			return err
		}

		var chunks []outputlog.Chunk
		for chunk := range reader.Channel() {
			if chunk.Error != nil {
				return fmt.Errorf("failed to read transcript: %w", chunk.Error)
			}
			chunks = append(chunks, chunk)
		}

		title := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		md := transcript.Markdown(title, chunks)
		if asHTML {
			fmt.Println(transcript.HTML(md))
			return nil
		}
		fmt.Print(md)
		return nil
	},
}

// terminalAnswer reads prompt answers from the terminal. When the simulated
// process does not echo, the answer is read without echo as well.
func terminalAnswer(processEchoes bool) session.AnswerFunc {
	stdin := bufio.NewReader(os.Stdin)
	fd := int(os.Stdin.Fd())
	return func(prompt string) (string, error) {
		if !processEchoes && term.IsTerminal(fd) {
			answer, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr) // Print newline after hidden input
			if err != nil {
				return "", err
			}
			return string(answer), nil
		}
		line, err := stdin.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	replayCmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "Answer for the next prompt (repeatable)")
	replayCmd.Flags().BoolVar(&echo, "echo", false, "Echo answers to prompts into the output")
	replayCmd.Flags().DurationVarP(&deadline, "deadline", "d", 0, "Deadline for each line (default 5s)")
	replayCmd.Flags().BoolVar(&blockOnEmpty, "block-on-empty", false, "Keep waiting past the deadline while there is no output at all")
	replayCmd.Flags().BoolVar(&interactive, "interactive", false, "Answer prompts from the terminal")
	replayCmd.Flags().StringVarP(&transcriptFile, "transcript", "t", "", "Write an output log of the session to this file")

	transcriptCmd.Flags().BoolVar(&asHTML, "html", false, "Render sanitized HTML instead of markdown")
	transcriptCmd.Flags().StringVar(&stream, "stream", "", "Print only the raw content of this stream")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(transcriptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
