package main

import (
	"fmt"
	"os"

	"github.com/acervolabs/newsletter-search/internal/cli"
)

// version is overridden at build time with -ldflags.
var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
