package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/logging"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <ctid>",
	Short: "Stop and destroy a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runDestroy,
}

func init() {
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctid, err := parseCTID(args[0])
	if err != nil {
		return err
	}

	client := pveClient()
	ctx := cmd.Context()

	if client.IsRunning(ctx, ctid) {
		logInfo("Stopping container %d...", ctid)
		if err := client.Stop(ctx, ctid); err != nil {
			logging.Warn("stop failed, destroying anyway", "ctid", ctid, "error", err)
		}
	}

	if err := client.Destroy(ctx, ctid); err != nil {
		return errors.ContainerFailed("destroying container", err)
	}

	logSuccess("Container %d destroyed", ctid)
	return nil
}
