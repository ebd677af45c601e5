package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/pve"
)

var startCmd = &cobra.Command{
	Use:   "start <ctid>",
	Short: "Start a provisioned container with conflict recovery",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctid, err := parseCTID(args[0])
	if err != nil {
		return err
	}

	cfg, err := hostConfig()
	if err != nil {
		return errors.ConfigError("loading host configuration", err)
	}
	sup := pve.NewSupervisor(pveClient(), cfg.ConflictRegexp(), cfg.KeepNesting)
	outcome, err := sup.Start(cmd.Context(), ctid)
	if err != nil {
		if outcome != nil && outcome.Diagnostic != "" {
			logError("Container failed to start; last diagnostics follow")
			cmd.PrintErrln(outcome.Diagnostic)
		}
		return errors.ContainerFailed("starting container", err)
	}

	if outcome.NestingDropped {
		logInfo("Note: the nesting feature was disabled to resolve an AppArmor conflict")
	}
	logSuccess("Container %d started", ctid)
	return nil
}

// parseCTID parses a numeric container id argument.
func parseCTID(arg string) (int, error) {
	ctid, err := strconv.Atoi(arg)
	if err != nil || ctid < 1 {
		return 0, errors.InvalidInput("container id must be a positive number")
	}
	return ctid, nil
}
