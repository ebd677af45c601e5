package pve

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/dsmr-tools/dsmr-provision/internal/errors"
	"github.com/dsmr-tools/dsmr-provision/internal/logging"
	"github.com/dsmr-tools/dsmr-provision/internal/system"
)

// RequiredTools are the host commands provisioning depends on.
var RequiredTools = []string{"pct", "pvesh", "pveam"}

// Client wraps the Proxmox host commands.
type Client struct {
	exec system.CommandExecutor
	fs   system.FileSystem
}

// NewClient creates a Client using the given executor and filesystem.
func NewClient(exec system.CommandExecutor, fs system.FileSystem) *Client {
	return &Client{exec: exec, fs: fs}
}

// Exec exposes the underlying executor for collaborators that build their
// own command lines.
func (c *Client) Exec() system.CommandExecutor { return c.exec }

// FS exposes the underlying filesystem.
func (c *Client) FS() system.FileSystem { return c.fs }

// CheckPrerequisites verifies every required host command is installed.
func (c *Client) CheckPrerequisites() error {
	for _, tool := range RequiredTools {
		if _, err := c.exec.LookPath(tool); err != nil {
			return errors.MissingTool(tool)
		}
	}
	return nil
}

// NextID asks the cluster for the next unused container id.
func (c *Client) NextID(ctx context.Context) (int, error) {
	out, err := c.exec.Execute(ctx, "pvesh", "get", "/cluster/nextid")
	if err != nil {
		return 0, fmt.Errorf("pvesh get /cluster/nextid failed: %w", err)
	}

	id, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("unexpected pvesh nextid output %q: %w", strings.TrimSpace(string(out)), err)
	}

	logging.Debug("allocated container id", "ctid", id)
	return id, nil
}

// CreateSpec holds the resolved parameters for pct create.
type CreateSpec struct {
	Hostname      string
	Cores         int
	MemoryMB      int
	DiskGB        int
	Bridge        string
	RootfsStorage string
	Features      string
	TemplateRef   string // storage:vztmpl/<template>
}

// Create creates the container. The container is not started.
func (c *Client) Create(ctx context.Context, ctid int, spec CreateSpec) error {
	args := []string{
		"create", strconv.Itoa(ctid), spec.TemplateRef,
		"--hostname", spec.Hostname,
		"--cores", strconv.Itoa(spec.Cores),
		"--memory", strconv.Itoa(spec.MemoryMB),
		"--rootfs", fmt.Sprintf("%s:%d", spec.RootfsStorage, spec.DiskGB),
		"--net0", fmt.Sprintf("name=eth0,bridge=%s,ip=dhcp", spec.Bridge),
		"--unprivileged", "0",
		"--onboot", "1",
	}
	if spec.Features != "" {
		args = append(args, "--features", spec.Features)
	}

	logging.Debug("creating container", "ctid", ctid, "template", spec.TemplateRef)
	if out, err := c.exec.Execute(ctx, "pct", args...); err != nil {
		return fmt.Errorf("pct create failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Start starts the container, returning the combined diagnostic output on
// failure.
func (c *Client) Start(ctx context.Context, ctid int) (string, error) {
	out, err := c.exec.Execute(ctx, "pct", "start", strconv.Itoa(ctid))
	return string(out), err
}

// Stop stops the container.
func (c *Client) Stop(ctx context.Context, ctid int) error {
	if out, err := c.exec.Execute(ctx, "pct", "stop", strconv.Itoa(ctid)); err != nil {
		return fmt.Errorf("pct stop failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Destroy removes the container.
func (c *Client) Destroy(ctx context.Context, ctid int) error {
	if out, err := c.exec.Execute(ctx, "pct", "destroy", strconv.Itoa(ctid)); err != nil {
		return fmt.Errorf("pct destroy failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Status returns the pct status line for the container.
func (c *Client) Status(ctx context.Context, ctid int) (string, error) {
	out, err := c.exec.Execute(ctx, "pct", "status", strconv.Itoa(ctid))
	if err != nil {
		return "", fmt.Errorf("pct status failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsRunning reports whether the container status is "running".
func (c *Client) IsRunning(ctx context.Context, ctid int) bool {
	status, err := c.Status(ctx, ctid)
	return err == nil && strings.HasSuffix(status, "running")
}

// ExecShell runs a shell command line inside the container.
func (c *Client) ExecShell(ctx context.Context, ctid int, script string) (string, error) {
	out, err := c.exec.Execute(ctx, "pct", "exec", strconv.Itoa(ctid), "--", "sh", "-c", script)
	if err != nil {
		return string(out), fmt.Errorf("pct exec failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// WriteFile writes content to a file inside the container. The content is
// passed via stdin so it never appears in a command line.
func (c *Client) WriteFile(ctx context.Context, ctid int, path, content string) error {
	script := "cat > " + shellquote.Join(path)
	if out, err := c.exec.ExecuteWithStdin(ctx, content, "pct", "exec", strconv.Itoa(ctid), "--", "sh", "-c", script); err != nil {
		return fmt.Errorf("writing %s in container failed: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ConfPath returns the path of the container's persisted configuration.
func ConfPath(ctid int) string {
	return fmt.Sprintf("/etc/pve/lxc/%d.conf", ctid)
}
