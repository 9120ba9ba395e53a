// Package main prints a fresh DAYBOOK_SESSION_SECRET assignment.
package main

import (
	"flag"
	"os"

	"github.com/louisbranch/daybook/internal/platform/config"
	"github.com/louisbranch/daybook/internal/tools/sessionkey"
)

func main() {
	cfg, err := sessionkey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := sessionkey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate secret: %v", err)
	}
}
