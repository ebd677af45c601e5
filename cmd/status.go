package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dsmr-tools/dsmr-provision/internal/errors"
)

var statusCmd = &cobra.Command{
	Use:   "status <ctid>",
	Short: "Show container status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctid, err := parseCTID(args[0])
	if err != nil {
		return err
	}

	status, err := pveClient().Status(cmd.Context(), ctid)
	if err != nil {
		return errors.ContainerFailed("querying status", err)
	}

	cmd.Println(status)
	return nil
}
