package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/claimcheck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !errors.Is(err, cli.ErrNoReport) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
