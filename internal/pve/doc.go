// Package pve drives the Proxmox VE host tooling (pct, pvesh, pveam)
// through the system.CommandExecutor seam.
//
// The package covers four concerns:
//
//   - Client: container lifecycle (next-id allocation, create, start,
//     stop, exec) as thin wrappers over pct/pvesh invocations.
//   - TemplateRepo: the pveam template repository (list cached, list
//     available, download).
//   - RawConfig: applying raw LXC configuration lines, probing once per
//     run which pct syntax the installed Proxmox version accepts and
//     falling back to editing /etc/pve/lxc/<id>.conf directly.
//   - Supervisor: starting the container with a single automatic retry
//     for the known AppArmor/nesting conflict, and best-effort diagnostic
//     capture when the start fails terminally.
package pve
