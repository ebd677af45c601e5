package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dsmr-tools/dsmr-provision/internal/config"
	"github.com/dsmr-tools/dsmr-provision/internal/logging"
	"github.com/dsmr-tools/dsmr-provision/internal/pve"
	"github.com/dsmr-tools/dsmr-provision/internal/system"
)

var (
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "dsmr-provision",
	Short: "Provision a DSMR-reader container on Proxmox VE",
	Long: `dsmr-provision builds an LXC container on a Proxmox VE host and installs
the DSMR-reader metering stack in it via podman-compose.

The container is wired to a P1 smart meter either through a USB serial
adapter passed through from the host, or over TCP from a remote reader.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose || envVerbose(), jsonOutput, os.Stderr)
	},
	RunE: runProvision,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logError   = logging.UserError
)

func envVerbose() bool {
	v, ok := os.LookupEnv(config.EnvVerbose)
	return ok && v != "" && v != "0" && v != "false"
}

// hostConfig loads the host configuration with environment overrides.
func hostConfig() (*config.HostConfig, error) {
	return config.Load(config.DefaultConfigDir)
}

// pveClient builds a Client on the process-wide system implementations.
func pveClient() *pve.Client {
	return pve.NewClient(system.DefaultExecutor(), system.DefaultFS())
}
