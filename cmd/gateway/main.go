// Package main is the entry point for the media gateway.
package main

import (
	"fmt"
	"io"
	"os"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCommand(os.LookupEnv, runGateway).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "frontgw: %v\n", err)
		os.Exit(1)
	}
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "frontgw version %s\n", version)
	fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}
