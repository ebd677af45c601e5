package compose

import (
	"context"
	"fmt"
	"path"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/logging"
	"github.com/dsmr-tools/dsmr-provision/internal/pve"
)

// Installer uploads the prepared compose stack into a container and
// brings it up.
type Installer struct {
	client *pve.Client

	// ServiceUser owns the stack and runs podman-compose.
	ServiceUser string

	// InstallDir is the in-container directory holding the files.
	InstallDir string
}

// NewInstaller creates an Installer.
func NewInstaller(client *pve.Client, serviceUser, installDir string) *Installer {
	return &Installer{client: client, ServiceUser: serviceUser, InstallDir: installDir}
}

// Install uploads the compose definition and env file and starts the
// stack as the service user.
func (i *Installer) Install(ctx context.Context, ctid int, composeData, envData []byte) error {
	mkdir := fmt.Sprintf("mkdir -p %s && chown %s: %s",
		shellquote.Join(i.InstallDir), i.ServiceUser, shellquote.Join(i.InstallDir))
	if _, err := i.client.ExecShell(ctx, ctid, mkdir); err != nil {
		return errors.InstallFailed("creating install directory", err)
	}

	composePath := path.Join(i.InstallDir, "docker-compose.yml")
	if err := i.client.WriteFile(ctx, ctid, composePath, string(composeData)); err != nil {
		return errors.InstallFailed("uploading compose definition", err)
	}
	envPath := path.Join(i.InstallDir, ".env")
	if err := i.client.WriteFile(ctx, ctid, envPath, string(envData)); err != nil {
		return errors.InstallFailed("uploading env file", err)
	}

	chown := fmt.Sprintf("chown %s: %s %s", i.ServiceUser,
		shellquote.Join(composePath), shellquote.Join(envPath))
	if _, err := i.client.ExecShell(ctx, ctid, chown); err != nil {
		return errors.InstallFailed("setting file ownership", err)
	}

	logging.Info("starting compose stack", "ctid", ctid, "dir", i.InstallDir)
	up := fmt.Sprintf("cd %s && podman-compose up -d", shellquote.Join(i.InstallDir))
	runAs := fmt.Sprintf("runuser -u %s -- sh -c %s", i.ServiceUser, shellquote.Join(up))
	if _, err := i.client.ExecShell(ctx, ctid, runAs); err != nil {
		return errors.InstallFailed("podman-compose up", err)
	}
	return nil
}
