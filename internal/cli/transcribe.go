package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaz8081/gostt-prompt/internal/audio"
	"github.com/chaz8081/gostt-prompt/internal/transcribe"
)

func newTranscribeCmd(e *env) *cobra.Command {
	var reference string
	var noDenoise bool

	cmd := &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe a WAV file",
		Long:  "Transcribe a WAV file through the same resample, noise reduction and decoding path used for live dictation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, rate, err := audio.ReadWAV(args[0])
			if err != nil {
				return err
			}
			e.logger.Debug("wav loaded", "rate", rate, "samples", len(samples))

			samples = audio.Resample(samples, rate, e.cfg.Audio.TargetSampleRate)

			p := e.newPipeline(!noDenoise)
			defer func() { _ = p.model.Close() }()
			if err := p.model.Load(); err != nil {
				return err
			}

			text := p.service.Transcribe(samples)
			fmt.Fprintln(cmd.OutOrStdout(), text)

			if reference != "" {
				s := transcribe.ScoreTranscript(reference, text)
				fmt.Fprintf(cmd.ErrOrStderr(), "WER %.1f%% (%d sub, %d ins, %d del over %d words)\n",
					s.WER*100, s.Substitutions, s.Insertions, s.Deletions, s.RefWords)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reference, "reference", "", "expected transcript; prints the word error rate")
	cmd.Flags().BoolVar(&noDenoise, "no-denoise", false, "skip noise reduction")

	return cmd
}
