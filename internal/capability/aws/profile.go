package aws

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	sdkconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/imamik/hostprep/internal/capability"
)

const (
	defaultProfile = "default"

	keyAccessKeyID     = "aws_access_key_id"
	keySecretAccessKey = "aws_secret_access_key"
	keyRegion          = "region"

	credentialsSource = "hostprep shared credentials file"
)

// LocalFiles are the local shared AWS files a profile is read from.
type LocalFiles struct {
	Credentials string
	Config      string
}

// DefaultLocalFiles returns the SDK default locations, overridden by
// AWS_SHARED_CREDENTIALS_FILE and AWS_CONFIG_FILE when set.
func DefaultLocalFiles() LocalFiles {
	files := LocalFiles{
		Credentials: sdkconfig.DefaultSharedCredentialsFilename(),
		Config:      sdkconfig.DefaultSharedConfigFilename(),
	}
	if p := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); p != "" {
		files.Credentials = p
	}
	if p := os.Getenv("AWS_CONFIG_FILE"); p != "" {
		files.Config = p
	}
	return files
}

// Profile is a local profile ready to be uploaded.
type Profile struct {
	Credentials sdkaws.Credentials
	Region      string
}

// ReadProfile reads the access keys of profile from the credentials file and
// its region from the config file.
func ReadProfile(files LocalFiles, profile string) (Profile, error) {
	creds, err := readSection(files.Credentials, profile, keyAccessKeyID, keySecretAccessKey)
	if err != nil {
		return Profile{}, err
	}

	section := "profile " + profile
	if profile == defaultProfile {
		section = defaultProfile
	}
	cfg, err := readSection(files.Config, section, keyRegion)
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		Credentials: sdkaws.Credentials{
			AccessKeyID:     creds[keyAccessKeyID],
			SecretAccessKey: creds[keySecretAccessKey],
			Source:          credentialsSource,
		},
		Region: cfg[keyRegion],
	}, nil
}

// readSection scans an ini file for [section] and returns the required keys.
// Every key must be present and non-empty.
func readSection(path, section string, keys ...string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &capability.MissingLocalResourceError{Path: path, Err: capability.ErrLocalFileMissing}
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	values := make(map[string]string)
	found, inSection := false, false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := strings.TrimSpace(line[1 : len(line)-1])
			inSection = name == section
			found = found || inSection
			continue
		}
		if !inSection {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if key = strings.TrimSpace(key); wanted[key] {
			values[key] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !found {
		return nil, &capability.MissingLocalResourceError{Path: path, Section: section, Err: capability.ErrSectionNotFound}
	}
	for _, k := range keys {
		v, ok := values[k]
		switch {
		case !ok:
			return nil, &capability.MissingLocalResourceError{Path: path, Section: section, Key: k, Err: capability.ErrKeyMissing}
		case v == "":
			return nil, &capability.MissingLocalResourceError{Path: path, Section: section, Key: k, Err: capability.ErrValueMissing}
		}
	}
	return values, nil
}
