package pve

import (
	"context"
	"fmt"
	"strings"

	"github.com/dsmr-tools/dsmr-provision/internal/logging"
)

// TemplateRepo wraps the pveam template repository.
type TemplateRepo struct {
	client  *Client
	storage string
}

// NewTemplateRepo creates a TemplateRepo for the given storage.
func NewTemplateRepo(client *Client, storage string) *TemplateRepo {
	return &TemplateRepo{client: client, storage: storage}
}

// Update refreshes the template index.
func (t *TemplateRepo) Update(ctx context.Context) error {
	if out, err := t.client.exec.Execute(ctx, "pveam", "update"); err != nil {
		return fmt.Errorf("pveam update failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ListCached returns the template names already downloaded to storage.
// pveam list output has a header line and rows like
// "local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst  423.51MB".
func (t *TemplateRepo) ListCached(ctx context.Context) ([]string, error) {
	out, err := t.client.exec.Execute(ctx, "pveam", "list", t.storage)
	if err != nil {
		return nil, fmt.Errorf("pveam list failed: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		ref := fields[0]
		if _, name, ok := strings.Cut(ref, "/"); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// ListAvailable returns the system-section template names offered by the
// repository. Rows look like "system  debian-12-standard_12.7-1_amd64.tar.zst".
func (t *TemplateRepo) ListAvailable(ctx context.Context) ([]string, error) {
	out, err := t.client.exec.Execute(ctx, "pveam", "available", "--section", "system")
	if err != nil {
		return nil, fmt.Errorf("pveam available failed: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names = append(names, fields[1])
	}
	return names, nil
}

// Download fetches a template by name into storage.
func (t *TemplateRepo) Download(ctx context.Context, name string) error {
	logging.Debug("downloading template", "template", name, "storage", t.storage)
	if out, err := t.client.exec.Execute(ctx, "pveam", "download", t.storage, name); err != nil {
		return fmt.Errorf("pveam download failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Ensure makes sure the named template is cached, downloading it when
// missing, and returns the storage reference passed to pct create.
func (t *TemplateRepo) Ensure(ctx context.Context, name string) (string, error) {
	cached, err := t.ListCached(ctx)
	if err != nil {
		return "", err
	}

	found := false
	for _, c := range cached {
		if c == name {
			found = true
			break
		}
	}

	if !found {
		if err := t.Update(ctx); err != nil {
			return "", err
		}
		if err := t.Download(ctx, name); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%s:vztmpl/%s", t.storage, name), nil
}
