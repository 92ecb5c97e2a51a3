// Command gostt-prompt dictates AI prompts with local push-to-talk speech recognition.
package main

import (
	"os"

	"github.com/chaz8081/gostt-prompt/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
