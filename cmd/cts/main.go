// Command cts runs the ANARI conformance test suite.
package main

import (
	"fmt"
	"os"

	_ "github.com/ux3d/ANARI-SDK/internal/backend/soft"
	"github.com/ux3d/ANARI-SDK/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
