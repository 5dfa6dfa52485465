package config

// Defaults applied when the document or the command line leaves a value unset.
const (
	DefaultFolderPerm = "0777"
	DefaultSSHUser    = "root"
	DefaultSSHPort    = 22
	DefaultSSHKeyFile = "~/.ssh/id_rsa"
)
