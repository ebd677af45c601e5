package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dsmr-tools/dsmr-provision/internal/compose"
	"github.com/dsmr-tools/dsmr-provision/internal/device"
	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/logging"
	"github.com/dsmr-tools/dsmr-provision/internal/provision"
	"github.com/dsmr-tools/dsmr-provision/internal/system"
	"github.com/dsmr-tools/dsmr-provision/internal/tui"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a new DSMR-reader container",
	Args:  cobra.NoArgs,
	RunE:  runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) error {
	cfg, err := hostConfig()
	if err != nil {
		return errors.ConfigError("loading host configuration", err)
	}

	resolver := device.NewResolver(system.DefaultFS())
	devices, err := resolver.List()
	if err != nil {
		return errors.DeviceError("listing serial adapters", err)
	}
	logging.Debug("serial adapters discovered", "count", len(devices))

	var answers *tui.Answers
	if tui.IsInteractive() {
		answers, err = tui.RunWizard(devices)
	} else {
		answers, err = tui.NewPrompter(os.Stdin, os.Stdout).Collect(devices)
	}
	if err != nil {
		return errors.Wrap(errors.ExitInvalidInput, "gathering provisioning answers", err)
	}
	if answers == nil {
		logInfo("Cancelled")
		return nil
	}

	opts := provision.Options{Settings: answers.Settings}
	if answers.Settings.Method == compose.MethodUSB {
		resolved, err := resolver.Resolve(answers.Settings.DevicePath)
		if err != nil {
			return err
		}
		opts.Device = *resolved
		logging.Debug("serial device resolved",
			"path", resolved.Path, "major", resolved.Major, "minor", resolved.Minor)
	}

	p := provision.NewProvisioner(pveClient(), cfg, compose.NewFetcher())
	result, err := p.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if result.NestingDropped {
		logInfo("Note: the nesting feature was disabled to resolve an AppArmor conflict")
	}
	logSuccess("DSMR-reader is starting in container %d", result.CTID)
	return nil
}
