// Package provision orchestrates the end-to-end container build: template
// handling, container creation, isolation overrides, device passthrough,
// supervised startup, in-container setup, and the compose stack install.
package provision

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/dsmr-tools/dsmr-provision/internal/compose"
	"github.com/dsmr-tools/dsmr-provision/internal/config"
	"github.com/dsmr-tools/dsmr-provision/internal/device"
	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/logging"
	"github.com/dsmr-tools/dsmr-provision/internal/lxcconf"
	"github.com/dsmr-tools/dsmr-provision/internal/passthrough"
	"github.com/dsmr-tools/dsmr-provision/internal/pve"
)

// ReadinessDelay is how long to give the freshly started container before
// running commands in it. Crude, but pct offers no readiness signal for
// the init system inside.
const ReadinessDelay = 5 * time.Second

// setupPackages are installed inside the container before the compose
// stack is brought up.
const setupPackages = "podman podman-compose curl"

// TemplateSource fetches the upstream compose and env templates.
type TemplateSource interface {
	FetchPair(ctx context.Context, composeURL, envURL string) (composeData, envData []byte, err error)
}

// Options holds operator choices for one provisioning run.
type Options struct {
	Settings compose.Settings

	// Device is set for the USB method, resolved from the operator's
	// adapter choice.
	Device device.Resolved
}

// Result summarizes a successful run.
type Result struct {
	CTID   int
	Method string

	// NestingDropped reports whether startup recovery removed the
	// nesting feature.
	NestingDropped bool
}

// Provisioner drives the full provisioning flow.
type Provisioner struct {
	client    *pve.Client
	cfg       *config.HostConfig
	templates TemplateSource

	// Delay overrides ReadinessDelay, for tests.
	Delay time.Duration
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(client *pve.Client, cfg *config.HostConfig, templates TemplateSource) *Provisioner {
	return &Provisioner{client: client, cfg: cfg, templates: templates, Delay: ReadinessDelay}
}

// Run provisions a container and installs the compose stack in it.
func (p *Provisioner) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	if err := p.client.CheckPrerequisites(); err != nil {
		return nil, err
	}

	ctid, err := p.client.NextID(ctx)
	if err != nil {
		return nil, errors.ContainerFailed("allocating container id", err)
	}
	logging.UserInfo("Provisioning container %d", ctid)

	repo := pve.NewTemplateRepo(p.client, p.cfg.TemplateStorage)
	templateRef, err := repo.Ensure(ctx, p.cfg.Template)
	if err != nil {
		return nil, errors.ContainerFailed("preparing template", err)
	}

	if err := p.client.Create(ctx, ctid, pve.CreateSpec{
		Hostname:      p.cfg.Hostname,
		Cores:         p.cfg.Cores,
		MemoryMB:      p.cfg.MemoryMB,
		DiskGB:        p.cfg.DiskGB,
		Bridge:        p.cfg.Bridge,
		RootfsStorage: p.cfg.RootfsStorage,
		Features:      p.features(),
		TemplateRef:   templateRef,
	}); err != nil {
		return nil, errors.ContainerFailed("creating container", err)
	}
	logging.UserInfo("Container created")

	raw := pve.NewRawConfig(p.client)
	if err := raw.IsolationOverrides(ctx, ctid); err != nil {
		return nil, err
	}
	logging.Debug("isolation overrides applied", "ctid", ctid, "dialect", raw.Dialect())

	settings := opts.Settings
	if settings.Method == compose.MethodUSB {
		attacher := passthrough.NewConfigurator(p.client)
		res, err := attacher.Attach(ctx, ctid, opts.Device)
		if err != nil {
			return nil, err
		}
		settings.DevicePath = res.ContainerPath
		logging.UserInfo("Serial device passed through as %s (%s)", res.ContainerPath, res.Method)
	}

	sup := pve.NewSupervisor(p.client, p.cfg.ConflictRegexp(), p.cfg.KeepNesting)
	outcome, err := sup.Start(ctx, ctid)
	if err != nil {
		if outcome != nil && outcome.Diagnostic != "" {
			logging.UserError("Container failed to start; last diagnostics follow")
			fmt.Fprintln(os.Stderr, outcome.Diagnostic)
		}
		return nil, errors.ContainerFailed("starting container", err)
	}
	logging.UserSuccess("Container started")

	if p.Delay > 0 {
		logging.Debug("waiting for container init", "delay", p.Delay)
		time.Sleep(p.Delay)
	}

	if err := p.setupContainer(ctx, ctid); err != nil {
		return nil, err
	}

	if err := p.installStack(ctx, ctid, settings); err != nil {
		return nil, err
	}

	result := &Result{CTID: ctid, Method: settings.Method, NestingDropped: outcome.NestingDropped}
	logging.UserSuccess("Container %d provisioned with the %s connection method", ctid, methodLabel(settings.Method))
	return result, nil
}

// features returns the feature flag list, honoring the force-nesting
// override.
func (p *Provisioner) features() string {
	features := p.cfg.Features
	if p.cfg.ForceNesting && !lxcconf.HasFeature(features, "nesting") {
		if features == "" {
			return "nesting=1"
		}
		return features + ",nesting=1"
	}
	return features
}

// setupContainer installs the runtime packages and creates the service
// user inside the container.
func (p *Provisioner) setupContainer(ctx context.Context, ctid int) error {
	logging.UserInfo("Installing container packages")
	steps := []struct {
		name   string
		script string
	}{
		{"installing packages", "apt-get update && apt-get install -y " + setupPackages},
		{"creating service user", fmt.Sprintf("id %s >/dev/null 2>&1 || useradd -m -s /bin/bash %s",
			shellquote.Join(p.cfg.ServiceUser), shellquote.Join(p.cfg.ServiceUser))},
		{"enabling lingering", "loginctl enable-linger " + shellquote.Join(p.cfg.ServiceUser)},
	}
	for _, step := range steps {
		if _, err := p.client.ExecShell(ctx, ctid, step.script); err != nil {
			return errors.InstallFailed(step.name, err)
		}
	}
	return nil
}

// installStack fetches, templatizes, uploads, and starts the compose
// stack.
func (p *Provisioner) installStack(ctx context.Context, ctid int, settings compose.Settings) error {
	logging.UserInfo("Installing compose stack")

	composeData, envData, err := p.templates.FetchPair(ctx, p.cfg.ComposeURL, p.cfg.EnvURL)
	if err != nil {
		return errors.InstallFailed("fetching templates", err)
	}

	patched, err := compose.PatchCompose(composeData, settings)
	if err != nil {
		return errors.InstallFailed("patching compose definition", err)
	}
	rendered := compose.RenderEnv(envData, settings)

	installer := compose.NewInstaller(p.client, p.cfg.ServiceUser, p.cfg.InstallDir)
	return installer.Install(ctx, ctid, patched, rendered)
}

func methodLabel(method string) string {
	return strings.ToUpper(method)
}
