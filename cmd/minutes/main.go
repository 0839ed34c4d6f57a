package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Interrupted follow-mode commands exit quietly.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "minutes: %v\n", err)
		}
		os.Exit(1)
	}
}
