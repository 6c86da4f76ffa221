package main

import (
	"fmt"
	"os"

	"github.com/fsbroker/fsbroker/cmd/fseventsctl/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
