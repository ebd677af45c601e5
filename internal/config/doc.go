// Package config provides configuration types and loading for dsmr-provision.
//
// # Configuration File
//
// Host configuration is read from /etc/dsmr-provision/config.toml over
// built-in defaults. Everything in the file is optional:
//
//	hostname = "dsmr"
//	cores = 2
//	memory_mb = 2048
//	disk_gb = 8
//	bridge = "vmbr0"
//	template_storage = "local"
//	rootfs_storage = "local-lvm"
//	features = "nesting=1,fuse=1,keyctl=1"
//	conflict_pattern = '(?i)apparmor.*nesting'
//
// The conflict_pattern is matched against pct start diagnostics to decide
// whether the AppArmor/nesting retry is applicable. Its wording changes
// across Proxmox releases, which is why it is configuration and not code.
//
// # Environment Overrides
//
//	DSMR_FORCE_NESTING=1  force-enable the nesting feature
//	DSMR_KEEP_NESTING=1   never drop nesting, even on a start conflict
//	DSMR_VERBOSE=1        force verbose tracing
package config
