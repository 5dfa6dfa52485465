package config

import "sort"

// Config is a parsed provisioning document.
type Config struct {
	SSH     SSH               `yaml:"ssh" toml:"ssh"`
	Stages  map[string]*Stage `yaml:"stages" toml:"stages"`
	Aliases map[string]string `yaml:"aliases" toml:"aliases"`
	Exports map[string]string `yaml:"exports" toml:"exports"`
}

// SSH holds connection settings. Every field is optional; command-line
// flags and REMOTE_SSH_* environment variables take precedence.
type SSH struct {
	Host       string `yaml:"remote_host" toml:"remote_host"`
	User       string `yaml:"remote_user" toml:"remote_user"`
	Port       int    `yaml:"remote_port" toml:"remote_port"`
	Password   string `yaml:"remote_password" toml:"remote_password"`
	KeyFile    string `yaml:"remote_key_file" toml:"remote_key_file"`
	KnownHosts string `yaml:"known_hosts" toml:"known_hosts"`
}

// Stage is a named group of capabilities applied together.
// A nil options pointer means the capability is not activated.
type Stage struct {
	Name string `yaml:"-" toml:"-"`

	Mount        *MountOptions     `yaml:"mount" toml:"mount"`
	Mkdir        *MkdirOptions     `yaml:"mkdir" toml:"mkdir"`
	Keys         *KeysOptions      `yaml:"keys" toml:"keys"`
	Git          *GitOptions       `yaml:"git" toml:"git"`
	Apt          *AptOptions       `yaml:"apt" toml:"apt"`
	Docker       *DockerOptions    `yaml:"docker" toml:"docker"`
	Terraform    *TerraformOptions `yaml:"terraform" toml:"terraform"`
	Aws          *AwsOptions       `yaml:"aws" toml:"aws"`
	NodeExporter *ContainerOptions `yaml:"node_exporter" toml:"node_exporter"`
	DockerStats  *ContainerOptions `yaml:"docker_stats" toml:"docker_stats"`
}

// MountOptions selects a block device and mounts it persistently.
type MountOptions struct {
	// To is the target mount path, e.g. /data. If nothing is mounted there,
	// the biggest free whole disk is selected.
	To string `yaml:"to" toml:"to"`
	// Reformat creates a new filesystem even when the selected device
	// already carries one.
	Reformat bool `yaml:"reformat" toml:"reformat"`
}

// MkdirOptions creates folders with the given permissions.
type MkdirOptions struct {
	Sudo    bool     `yaml:"sudo" toml:"sudo"`
	Folders []string `yaml:"folders" toml:"folders"`
	// Perm is the chmod mode applied recursively. Defaults to DefaultFolderPerm.
	Perm string `yaml:"perm" toml:"perm"`
	// Owner, if set, is applied recursively with chown.
	Owner string `yaml:"owner" toml:"owner"`
}

// AptOptions lists packages to install.
type AptOptions struct {
	Install []string `yaml:"install" toml:"install"`
}

// DockerOptions installs Docker CE.
type DockerOptions struct {
	// Path, if set, becomes the parent of Docker's data-root.
	Path string `yaml:"path" toml:"path"`
}

// TerraformOptions installs Terraform from the HashiCorp repository.
type TerraformOptions struct{}

// AwsOptions installs the AWS CLI and optionally uploads a local profile.
type AwsOptions struct {
	// Profile is the local profile to upload.
	Profile string `yaml:"profile" toml:"profile"`
	// Rename is the remote profile name; defaults to Profile.
	Rename string `yaml:"rename" toml:"rename"`
}

// RemoteProfile returns the profile name used on the remote host.
func (o AwsOptions) RemoteProfile() string {
	if o.Rename != "" {
		return o.Rename
	}
	return o.Profile
}

// GitOptions clones a repository.
type GitOptions struct {
	To    string `yaml:"to" toml:"to"`
	Clone string `yaml:"clone" toml:"clone"`
}

// KeysOptions copies local files to the same paths on the remote host.
type KeysOptions struct {
	Sync []string `yaml:"sync" toml:"sync"`
	Perm string   `yaml:"perm" toml:"perm"`
}

// ContainerOptions runs a monitoring exporter container.
type ContainerOptions struct{}

// StageNames returns the stage names in sorted order, the order stages run in.
func (c *Config) StageNames() []string {
	names := make([]string, 0, len(c.Stages))
	for name := range c.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedKeys returns the keys of m in sorted order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
