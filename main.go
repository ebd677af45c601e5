package main

import (
	"os"

	"github.com/dsmr-tools/dsmr-provision/cmd"
	"github.com/dsmr-tools/dsmr-provision/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
