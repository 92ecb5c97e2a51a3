package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chaz8081/gostt-prompt/internal/config"
	"github.com/chaz8081/gostt-prompt/internal/models"
)

func newDownloadModelCmd(e *env) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "download-model",
		Short: "Download the whisper model into the models directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := filepath.Join(config.DefaultModelsDir(), name)
			if name == config.DefaultModelName {
				dest = e.cfg.Transcribe.ModelPath
			}

			d := models.NewDownloader(cmd.OutOrStdout(), e.logger)
			downloaded, err := d.Download(cmd.Context(), name, dest)
			if err != nil {
				return err
			}
			if downloaded {
				fmt.Fprintf(cmd.OutOrStdout(), "  Model installed: %s\n", dest)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", config.DefaultModelName, "ggml model file name")

	return cmd
}

func newInitCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault()
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", config.DefaultConfigPath())
				return nil
			}
			e.logger.Debug("config written", "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}
