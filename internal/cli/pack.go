package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaz8081/gostt-prompt/internal/app"
	"github.com/chaz8081/gostt-prompt/internal/hotkey"
	"github.com/chaz8081/gostt-prompt/internal/promptdoc"
)

func newPackCmd(e *env) *cobra.Command {
	var prompt string
	var dictate bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "pack [files or directories...]",
		Short: "Merge a prompt and files into one document for an AI assistant",
		Long: "Merge a prompt and the given files into a single document. Directories are walked recursively.\n" +
			"With --dictate, press Enter to start recording and Enter again to stop; the transcript becomes the prompt.",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := promptdoc.CollectFiles(args)
			if err != nil {
				return err
			}

			if dictate {
				text, err := e.dictate(cmd.Context(), cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				prompt = strings.TrimSpace(strings.Join([]string{prompt, text}, "\n\n"))
			}

			doc, err := promptdoc.Build(prompt, files)
			if err != nil {
				return err
			}

			if outPath == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), doc)
				return err
			}
			if err := os.WriteFile(outPath, []byte(doc), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d files)\n", outPath, len(files))
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "prompt text")
	cmd.Flags().BoolVarP(&dictate, "dictate", "d", false, "dictate the prompt with the microphone")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the document to a file instead of stdout")

	return cmd
}

// textCatcher hands the first transcript to the waiting command.
type textCatcher chan string

func (c textCatcher) Inject(text string) error {
	select {
	case c <- text:
	default:
	}
	return nil
}

// dictate records one prompt, toggled by Enter on in, and returns its text.
func (e *env) dictate(ctx context.Context, in io.Reader, status io.Writer) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := e.newPipeline(true)
	defer func() { _ = p.model.Close() }()
	e.warm(ctx, p)

	caught := make(textCatcher, 1)

	var a *app.App
	rec, err := e.newRecorder(p, func(err error) { a.CaptureFailed(err) })
	if err != nil {
		return "", err
	}
	defer func() { _ = rec.Close() }()

	a = app.New(rec, p.service, caught, app.Options{
		SampleRate:  e.cfg.Audio.TargetSampleRate,
		MinDuration: e.cfg.Audio.MinDuration,
		Logger:      e.logger,
		OnStatus: func(s app.Status) {
			switch s {
			case app.StatusRecording:
				fmt.Fprintln(status, "Recording... press Enter to stop.")
			case app.StatusProcessing:
				fmt.Fprintln(status, "Transcribing...")
			case app.StatusReady:
				fmt.Fprintln(status, "Ready.")
			}
		},
		OnNotice: func(msg string) {
			fmt.Fprintf(status, "%s. Press Enter to try again.\n", msg)
		},
	})

	lines := hotkey.NewLineListener(in)
	go lines.Start()
	defer lines.Stop()

	fmt.Fprintln(status, "Press Enter to start recording.")

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx, lines.Events()) }()

	select {
	case text := <-caught:
		cancel()
		<-runErr
		a.Wait()
		return text, nil
	case err := <-runErr:
		// Input ended; a transcription may still be in flight.
		a.Wait()
		select {
		case text := <-caught:
			return text, nil
		default:
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", errors.New("no prompt was dictated")
	}
}
