package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/pve"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List container templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplates,
}

var templatesAvailable bool

func init() {
	templatesCmd.Flags().BoolVarP(&templatesAvailable, "available", "a", false, "List templates offered by the repository instead of cached ones")
	rootCmd.AddCommand(templatesCmd)
}

func runTemplates(cmd *cobra.Command, args []string) error {
	cfg, err := hostConfig()
	if err != nil {
		return errors.ConfigError("loading host configuration", err)
	}

	repo := pve.NewTemplateRepo(pveClient(), cfg.TemplateStorage)

	var names []string
	if templatesAvailable {
		if err := repo.Update(cmd.Context()); err != nil {
			return err
		}
		names, err = repo.ListAvailable(cmd.Context())
	} else {
		names, err = repo.ListCached(cmd.Context())
	}
	if err != nil {
		return err
	}

	if len(names) == 0 {
		logInfo("No templates found")
		return nil
	}
	for _, name := range names {
		cmd.Println(name)
	}
	return nil
}
