// Package mount selects a block device and mounts it persistently.
//
// If a device is already mounted at the target path it is adopted as is.
// Otherwise the biggest unpartitioned, unmounted whole disk is formatted
// (ext4), mounted, and recorded in /etc/fstab with defaults,nofail. The fstab
// append is gated on a substring search of the current table, so repeated
// installs never add a duplicate entry.
//
// An existing filesystem on the selected device is kept unless Reformat is
// set, so a rerun after a partial install does not destroy data.
package mount

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/hostprep/internal/blockdev"
	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

const (
	fstabPath       = "/etc/fstab"
	fstabBackupPath = "/etc/fstab.bak"
	defaultFSType   = "ext4"
)

// ErrNoEligibleDevice is returned when nothing is mounted at the target path
// and no free whole disk exists.
var ErrNoEligibleDevice = errors.New("failed to find target block device")

// Install mounts a device at opts.To and makes the mount persistent.
func Install(ctx context.Context, r remote.Runner, opts config.MountOptions) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("capability", "mount", "to", opts.To)

	inv, err := inventory(ctx, r)
	if err != nil {
		return err
	}

	dev, ok := inv.MountedAt(opts.To)
	if ok {
		log.Info("folder is already used", "device", dev.Name)
	} else {
		dev, ok = inv.BiggestUnmounted()
		if !ok {
			return ErrNoEligibleDevice
		}
		log.Info("selected device", "device", dev.Name, "size", dev.Size)
		if err := mountDevice(ctx, r, dev, opts); err != nil {
			return err
		}
	}

	return ensureFstab(ctx, r, dev, opts.To)
}

// Check reports whether opts.To is mounted and whether the device that is,
// or would be, mounted there is recorded in /etc/fstab.
func Check(ctx context.Context, r remote.Runner, opts config.MountOptions) (status.Status, error) {
	var b status.Builder

	inv, err := inventory(ctx, r)
	if err != nil {
		return status.Status{}, err
	}

	dev, ok := inv.MountedAt(opts.To)
	if ok {
		b.Ok(fmt.Sprintf("folder %s is used by %s", opts.To, dev.Name))
	} else {
		dev, ok = inv.BiggestUnmounted()
		if !ok {
			b.Fail(ErrNoEligibleDevice.Error())
			return b.Status(), nil
		}
		b.Fail(fmt.Sprintf("folder %s is not mounted, %s would be used", opts.To, dev.Name))
	}

	inFstab, err := fstabHas(ctx, r, dev)
	if err != nil {
		return status.Status{}, err
	}
	b.Record(inFstab,
		fmt.Sprintf("device %s is in fstab", dev.Path()),
		fmt.Sprintf("device %s is not in fstab", dev.Path()))

	return b.Status(), nil
}

func inventory(ctx context.Context, r remote.Runner) (*blockdev.Inventory, error) {
	out, err := r.Run(ctx, blockdev.ListCommand)
	if err != nil {
		return nil, fmt.Errorf("failed to list block devices: %w", err)
	}
	inv, err := blockdev.Parse([]byte(out.Output))
	if err != nil {
		return nil, err
	}

	log := logr.FromContextOrDiscard(ctx)
	for _, d := range inv.Candidates() {
		log.V(1).Info("device is not busy", "device", d.Name, "size", d.Size)
	}
	return inv, nil
}

func mountDevice(ctx context.Context, r remote.Runner, dev *blockdev.Device, opts config.MountOptions) error {
	log := logr.FromContextOrDiscard(ctx)

	existing := ""
	if !opts.Reformat {
		existing = filesystemType(ctx, r, dev)
	}
	if existing != "" {
		log.Info("keeping existing filesystem", "device", dev.Name, "fstype", existing)
	} else {
		if _, err := r.Run(ctx, fmt.Sprintf("sudo mkfs -t %s %s 2>&1", defaultFSType, dev.Path())); err != nil {
			return fmt.Errorf("failed to create filesystem on %s: %w", dev.Path(), err)
		}
	}

	if _, err := r.Run(ctx, fmt.Sprintf("sudo mkdir -p %s 2>&1", opts.To)); err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.To, err)
	}
	if _, err := r.Run(ctx, fmt.Sprintf("sudo mount %s %s 2>&1", dev.Path(), opts.To)); err != nil {
		return fmt.Errorf("failed to mount %s at %s: %w", dev.Path(), opts.To, err)
	}
	return nil
}

// filesystemType returns the filesystem blkid finds on dev, or "" if none.
func filesystemType(ctx context.Context, r remote.Runner, dev *blockdev.Device) string {
	out, err := r.Silent(ctx, fmt.Sprintf("sudo blkid -o value -s TYPE %s", dev.Path()))
	if err != nil || !out.OK() {
		return ""
	}
	return out.FirstLine()
}

func fstabHas(ctx context.Context, r remote.Runner, dev *blockdev.Device) (bool, error) {
	out, err := r.Run(ctx, "cat "+fstabPath)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", fstabPath, err)
	}
	return fstabLists(out.Output, dev.Path()), nil
}

// fstabLists reports whether path is the device field of an uncommented
// fstab entry. /dev/sdb1 does not count as /dev/sdb.
func fstabLists(fstab, path string) bool {
	for _, line := range strings.Split(fstab, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == path {
			return true
		}
	}
	return false
}

func ensureFstab(ctx context.Context, r remote.Runner, dev *blockdev.Device, to string) error {
	log := logr.FromContextOrDiscard(ctx)

	present, err := fstabHas(ctx, r, dev)
	if err != nil {
		return err
	}
	if present {
		log.Info("device is already in fstab", "device", dev.Path())
		return nil
	}

	fsType := filesystemType(ctx, r, dev)
	if fsType == "" {
		fsType = defaultFSType
	}

	if _, err := r.Run(ctx, fmt.Sprintf("sudo cp %s %s", fstabPath, fstabBackupPath)); err != nil {
		return fmt.Errorf("failed to back up %s: %w", fstabPath, err)
	}
	entry := FstabEntry(dev.Path(), to, fsType)
	cmd := fmt.Sprintf(`sudo sh -c 'echo "%s" >> %s'`, entry, fstabPath)
	if _, err := r.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to update %s: %w", fstabPath, err)
	}
	log.Info("added fstab entry", "entry", entry)
	return nil
}

// FstabEntry formats the /etc/fstab line for a data disk.
func FstabEntry(device, to, fsType string) string {
	return fmt.Sprintf("%s       %s   %s    defaults,nofail        0       0", device, to, fsType)
}
