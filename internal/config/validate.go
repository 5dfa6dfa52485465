package config

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

var shellIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the document for errors that would otherwise only surface
// on the remote host.
func (c *Config) Validate() error {
	if len(c.Stages) == 0 && len(c.Aliases) == 0 && len(c.Exports) == 0 {
		return errors.New("config declares no stages, aliases or exports")
	}

	if c.SSH.Port < 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh: invalid remote_port %d", c.SSH.Port)
	}

	for _, name := range c.StageNames() {
		if err := c.Stages[name].validate(); err != nil {
			return fmt.Errorf("stage %q: %w", name, err)
		}
	}

	for _, name := range SortedKeys(c.Aliases) {
		if !shellIdentifier.MatchString(name) {
			return fmt.Errorf("alias %q: name must be a shell identifier", name)
		}
	}
	for _, name := range SortedKeys(c.Exports) {
		if !shellIdentifier.MatchString(name) {
			return fmt.Errorf("export %q: name must be a shell identifier", name)
		}
	}

	return nil
}

func (s *Stage) validate() error {
	if s.Mount != nil {
		if s.Mount.To == "" {
			return errors.New("mount: to is required")
		}
		if !path.IsAbs(s.Mount.To) {
			return fmt.Errorf("mount: to must be an absolute path, got %q", s.Mount.To)
		}
	}

	if s.Mkdir != nil {
		if len(s.Mkdir.Folders) == 0 {
			return errors.New("mkdir: folders must not be empty")
		}
		for _, f := range s.Mkdir.Folders {
			if strings.TrimSpace(f) == "" {
				return errors.New("mkdir: folder names must not be blank")
			}
		}
	}

	if s.Keys != nil && len(s.Keys.Sync) == 0 {
		return errors.New("keys: sync must not be empty")
	}

	if s.Git != nil {
		if s.Git.To == "" {
			return errors.New("git: to is required")
		}
		if s.Git.Clone == "" {
			return errors.New("git: clone is required")
		}
	}

	if s.Apt != nil && len(s.Apt.Install) == 0 {
		return errors.New("apt: install must not be empty")
	}

	if s.Aws != nil && s.Aws.Rename != "" && s.Aws.Profile == "" {
		return errors.New("aws: rename requires profile")
	}

	return nil
}
