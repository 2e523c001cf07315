package main

import (
	"os"
)

var (
	version = "v0.0.0" // Set at build time via -ldflags "-X main.version=version"
	commit  = "none"
)

const appName = "navd"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
