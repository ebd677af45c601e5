package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/system"
)

var logsCmd = &cobra.Command{
	Use:   "logs <ctid>",
	Short: "View container service logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

var logsFollow bool
var logsLines int

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctid, err := parseCTID(args[0])
	if err != nil {
		return err
	}

	exec := system.DefaultExecutor()
	if _, err := exec.LookPath("journalctl"); err != nil {
		return errors.MissingTool("journalctl")
	}

	journalArgs := []string{
		"journalctl",
		"-u", fmt.Sprintf("pve-container@%d", ctid),
		"-n", fmt.Sprintf("%d", logsLines),
	}
	if logsFollow {
		journalArgs = append(journalArgs, "-f")
	}

	return exec.ReplaceProcess("journalctl", journalArgs[1:]...)
}
