package main

import (
	"fmt"
	"os"

	"github.com/tphakala/wildlife-go/cmd"
	"github.com/tphakala/wildlife-go/internal/buildinfo"
	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/logger"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = ""
	buildDate = ""
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetGlobal(central)

	build := buildinfo.NewContext(version, buildDate)
	rootCmd := cmd.RootCommand(settings, build)

	exitCode := 0
	if err := rootCmd.Execute(); err != nil {
		exitCode = 1
	}

	if err := central.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", err)
	}
	os.Exit(exitCode)
}
