package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chaz8081/gostt-prompt/internal/app"
	"github.com/chaz8081/gostt-prompt/internal/config"
	"github.com/chaz8081/gostt-prompt/internal/hotkey"
	"github.com/chaz8081/gostt-prompt/internal/inject"
	"github.com/chaz8081/gostt-prompt/internal/notify"
)

func newRunCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Listen for the global hotkey and type dictated text into the focused app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd)
		},
	}
}

func (e *env) run(cmd *cobra.Command) error {
	cfg := e.cfg
	printBanner(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := e.newPipeline(true)
	e.serveMetrics(ctx, p)
	e.warm(ctx, p)

	sink, err := inject.New(cfg.Inject.Method, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	notifier := notify.New(cfg.Notify.Enabled, e.logger)

	var a *app.App
	rec, err := e.newRecorder(p, func(err error) { a.CaptureFailed(err) })
	if err != nil {
		return fmt.Errorf("%w\n\nEnsure microphone access is granted to your terminal", err)
	}

	a = app.New(rec, p.service, sink, app.Options{
		SampleRate:  cfg.Audio.TargetSampleRate,
		MinDuration: cfg.Audio.MinDuration,
		Logger:      e.logger,
		OnStatus:    func(s app.Status) { notifier.Notify(s.String()) },
		OnNotice:    notifier.Notify,
	})

	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.Mode)
	go listener.Start()
	e.logger.Info("ready", "hotkey", strings.Join(cfg.Hotkey.Keys, "+"), "mode", cfg.Hotkey.Mode)

	err = a.Run(ctx, listener.Events())
	listener.Stop()
	a.Wait()
	if cerr := rec.Close(); cerr != nil {
		e.logger.Warn("closing recorder", "error", cerr)
	}
	if cerr := p.model.Close(); cerr != nil {
		e.logger.Warn("closing model", "error", cerr)
	}

	if errors.Is(err, context.Canceled) {
		e.logger.Info("goodbye")
		// Exit directly to avoid gohook's C cleanup crash.
		// The OS reclaims the event hook on process exit.
		os.Exit(0)
	}
	return err
}

// printBanner displays the startup configuration summary.
func printBanner(cmd *cobra.Command, cfg *config.Config) {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "=== gostt-prompt ===")
	fmt.Fprintf(w, "  Model:   %s\n", cfg.Transcribe.ModelPath)
	fmt.Fprintf(w, "  Hotkey:  %s (%s mode)\n", strings.Join(cfg.Hotkey.Keys, "+"), cfg.Hotkey.Mode)
	fmt.Fprintf(w, "  Audio:   %s -> %dHz, hop %s\n", cfg.Audio.Backend, cfg.Audio.TargetSampleRate, cfg.Audio.Hop)
	fmt.Fprintf(w, "  Denoise: %t\n", cfg.Denoise.Enabled)
	fmt.Fprintf(w, "  Inject:  %s\n", cfg.Inject.Method)
	fmt.Fprintln(w, "====================")
}
