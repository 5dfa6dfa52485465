// Package config defines the provisioning document: SSH connection settings,
// named stages with their activated capabilities, and run-level shell
// aliases and exports.
//
// Documents are TOML or YAML, chosen by file extension. A capability is
// activated by the presence of its table in a stage; an absent table (a nil
// options pointer) means the capability is not part of that stage.
package config
