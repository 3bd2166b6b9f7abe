package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/assapir/alma/internal/logger"
	"github.com/assapir/alma/internal/platform"
	"github.com/assapir/alma/internal/system"
)

// MountConfig is one mount point of a device, captured at validation time.
type MountConfig struct {
	MountPoint string
}

// HolderFinder names the processes keeping a mount point busy.
type HolderFinder interface {
	Holders(mountPoint string) ([]string, error)
}

// Validator turns user supplied paths into StorageDevice handles. It never
// trusts earlier enumeration results and re-reads the registry every time.
type Validator struct {
	registry  platform.Registry
	mounts    platform.MountTable
	unmounter platform.Unmounter
	holders   HolderFinder
	devDir    string
}

type Option func(*Validator)

func WithRegistry(registry platform.Registry) Option {
	return func(v *Validator) { v.registry = registry }
}

func WithMountTable(mounts platform.MountTable) Option {
	return func(v *Validator) { v.mounts = mounts }
}

func WithUnmounter(unmounter platform.Unmounter) Option {
	return func(v *Validator) { v.unmounter = unmounter }
}

// WithHolderFinder sets how busy mount points are explained in logs.
// A nil finder disables the lookup.
func WithHolderFinder(holders HolderFinder) Option {
	return func(v *Validator) { v.holders = holders }
}

func WithDevDir(dir string) Option {
	return func(v *Validator) { v.devDir = dir }
}

// NewValidator returns a validator for the live system unless overridden by opts.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		registry:  platform.DefaultRegistry(),
		mounts:    platform.ProcMountTable{Path: platform.DefaultMountsFile},
		unmounter: platform.SyscallUnmounter{},
		holders:   system.NewProcessManager(),
		devDir:    platform.DefaultDevDir,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// StorageDevice is a block device that passed the safety check.
type StorageDevice struct {
	name        string
	path        string
	removable   bool
	loop        bool
	mountConfig []MountConfig

	devDir    string
	unmounter platform.Unmounter
	holders   HolderFinder
}

// Validate resolves path to a block device and checks that it is safe to
// overwrite: removable, a loop device, or explicitly allowed through
// allowNonRemovable. The device's current mounts are captured as well.
func (v *Validator) Validate(path string, allowNonRemovable bool) (*StorageDevice, error) {
	logger.Debug("Validating block device", logger.String("path", path))

	canonical, err := canonicalize(path)
	if err != nil {
		return nil, &PathResolutionError{Path: path, Err: err}
	}

	name := filepath.Base(canonical)
	if name == "" || name == "." || name == string(filepath.Separator) || !utf8.ValidString(name) {
		return nil, &InvalidDeviceNameError{Path: canonical}
	}
	logger.Debug("Resolved block device", logger.String("real_path", canonical), logger.String("device", name))

	removable, err := v.registry.Removable(name)
	if err != nil {
		return nil, err
	}
	loop := v.registry.IsLoop(name)
	logger.Debug("Block device classification",
		logger.String("device", name),
		logger.Bool("removable", removable),
		logger.Bool("loop", loop))

	if !(allowNonRemovable || removable || loop) {
		return nil, &UnsafeDeviceError{Name: name, Path: canonical}
	}

	mountConfig, err := v.mountPoints(canonical)
	if err != nil {
		return nil, err
	}

	return &StorageDevice{
		name:        name,
		path:        canonical,
		removable:   removable,
		loop:        loop,
		mountConfig: mountConfig,
		devDir:      v.devDir,
		unmounter:   v.unmounter,
		holders:     v.holders,
	}, nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// mountPoints collects every mount of the device and of its partitions, in
// mount table order.
func (v *Validator) mountPoints(devicePath string) ([]MountConfig, error) {
	entries, err := v.mounts.Entries()
	if err != nil {
		return nil, fmt.Errorf("unable to read mount table: %w", err)
	}

	var mountConfig []MountConfig
	for _, entry := range entries {
		if platform.BelongsTo(entry.Source, devicePath) {
			mountConfig = append(mountConfig, MountConfig{MountPoint: entry.MountPoint})
		}
	}
	return mountConfig, nil
}

func (d *StorageDevice) origin() {}

func (d *StorageDevice) Name() string { return d.name }

// Path is the canonical path of the device node.
func (d *StorageDevice) Path() string { return d.path }

func (d *StorageDevice) Removable() bool { return d.removable }

func (d *StorageDevice) Loop() bool { return d.loop }

// MountConfig returns the mounts captured at validation time, minus those
// already handled by UnmountIfNeeded.
func (d *StorageDevice) MountConfig() []MountConfig {
	return append([]MountConfig{}, d.mountConfig...)
}

// Partition returns partition index (1-based) of the device. Only the
// existence of the partition node is checked.
func (d *StorageDevice) Partition(index uint8) (*Partition, error) {
	path := filepath.Join(d.devDir, platform.PartitionName(d.name, index))
	logger.Debug("Resolved partition",
		logger.Int("index", int(index)),
		logger.String("device", d.name),
		logger.String("path", path))

	if index == 0 {
		return nil, &PartitionNotFoundError{Device: d.name, Index: index, Path: path}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &PartitionNotFoundError{Device: d.name, Index: index, Path: path, Err: err}
	}
	return newPartition(d, path, index), nil
}

// UnmountIfNeeded unmounts every captured mount point. Failures are logged
// and do not stop the remaining unmounts. The captured list is always empty
// afterwards.
func (d *StorageDevice) UnmountIfNeeded() {
	// Later entries may be stacked on earlier ones.
	for i := len(d.mountConfig) - 1; i >= 0; i-- {
		mountPoint := d.mountConfig[i].MountPoint
		logger.Debug("Unmounting", logger.String("mount_point", mountPoint))

		if err := d.unmounter.Unmount(mountPoint); err != nil {
			fields := []zap.Field{logger.String("mount_point", mountPoint), logger.Err(err)}
			if holders := d.busyHolders(mountPoint); len(holders) > 0 {
				fields = append(fields, logger.Strings("holders", holders))
			}
			logger.Warn("Unable to unmount", fields...)
		}
	}
	d.mountConfig = nil
}

func (d *StorageDevice) busyHolders(mountPoint string) []string {
	if d.holders == nil {
		return nil
	}
	holders, err := d.holders.Holders(mountPoint)
	if err != nil {
		logger.Debug("Unable to look up mount point holders", logger.String("mount_point", mountPoint), logger.Err(err))
		return nil
	}
	return holders
}

// OpenExclusive opens the device node for writing with O_EXCL so that
// nothing can mount it between validation and the write.
func (d *StorageDevice) OpenExclusive() (*os.File, error) {
	return platform.OpenExclusive(d.path)
}
