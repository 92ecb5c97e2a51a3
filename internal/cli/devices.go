package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaz8081/gostt-prompt/internal/audio"
)

func newDevicesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := audio.NewMalgoSource()
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			devices, err := src.Devices()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No capture devices found.")
				return nil
			}
			for _, d := range devices {
				mark := " "
				if d.Default {
					mark = "*"
				}
				rates := make([]string, len(d.SampleRates))
				for i, r := range d.SampleRates {
					rates[i] = fmt.Sprintf("%d", r)
				}
				fmt.Fprintf(out, "%s %s", mark, d.Name)
				if len(rates) > 0 {
					fmt.Fprintf(out, " (%s Hz)", strings.Join(rates, ", "))
				}
				fmt.Fprintln(out)
			}
			e.logger.Debug("listed capture devices", "count", len(devices))
			return nil
		},
	}
}
