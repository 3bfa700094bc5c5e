package main

import (
	"os"

	"github.com/Samuel-Bradshaw/wcmc-solution/cmd"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/buildinfo"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   string
	buildDate string
)

func main() {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings, buildinfo.NewContext(version, buildDate))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
