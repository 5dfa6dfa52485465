// Package capability holds what the capability packages share: the error
// kinds they report and small helpers for building remote command lines.
//
// Each capability lives in its own subpackage and exposes the same two
// entry points:
//
//	Install(ctx, remote.Runner, opts) error
//	Check(ctx, remote.Runner, opts) (status.Status, error)
//
// Install drives remote state toward the declared options. Check inspects
// remote state without mutating it and reduces the findings to one Status.
package capability

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes wrapped by MissingLocalResourceError.
var (
	ErrLocalFileMissing = errors.New("local file not found")
	ErrSectionNotFound  = errors.New("section not found")
	ErrKeyMissing       = errors.New("key missing")
	ErrValueMissing     = errors.New("value missing")
)

// MissingLocalResourceError reports a local file, section, key or value that
// a capability needed but could not find.
type MissingLocalResourceError struct {
	// Path is the local file that was read.
	Path string
	// Section is the ini section, if the failure is inside a file.
	Section string
	// Key is the missing key, for ErrKeyMissing and ErrValueMissing.
	Key string
	// Err is one of the sentinel causes above.
	Err error
}

func (e *MissingLocalResourceError) Error() string {
	switch {
	case errors.Is(e.Err, ErrKeyMissing):
		return fmt.Sprintf("%s not specified for [%s] in %s", e.Key, e.Section, e.Path)
	case errors.Is(e.Err, ErrValueMissing):
		return fmt.Sprintf("%s is empty for [%s] in %s", e.Key, e.Section, e.Path)
	case errors.Is(e.Err, ErrSectionNotFound):
		return fmt.Sprintf("[%s] not found in %s", e.Section, e.Path)
	default:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
}

func (e *MissingLocalResourceError) Unwrap() error {
	return e.Err
}

// UnsupportedPlatformError is returned when the remote OS family is not one
// a capability knows how to provision.
type UnsupportedPlatformError struct {
	OS string
}

func (e *UnsupportedPlatformError) Error() string {
	if e.OS == "" {
		return "unsupported OS"
	}
	return fmt.Sprintf("unsupported OS: %s", e.OS)
}

// PackageNotFoundError consolidates every "Unable to locate package" line
// reported by the package manager.
type PackageNotFoundError struct {
	Packages []string
}

func (e *PackageNotFoundError) Error() string {
	return "unable to locate: " + strings.Join(e.Packages, ", ")
}
