package storage

import (
	"errors"
	"fmt"
)

var (
	ErrPathResolution    = errors.New("cannot resolve block device path")
	ErrInvalidDeviceName = errors.New("invalid device name")
	ErrUnsafeDevice      = errors.New("block device is neither removable nor a loop device")
	ErrPartitionNotFound = errors.New("partition does not exist")
)

// PathResolutionError means the given path does not exist or cannot be canonicalized.
type PathResolutionError struct {
	Path string
	Err  error
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("error querying information about the block device %s: %v", e.Path, e.Err)
}

func (e *PathResolutionError) Unwrap() error { return e.Err }

func (e *PathResolutionError) Is(target error) bool { return target == ErrPathResolution }

type InvalidDeviceNameError struct {
	Path string
}

func (e *InvalidDeviceNameError) Error() string {
	return fmt.Sprintf("invalid device name: %s", e.Path)
}

func (e *InvalidDeviceNameError) Is(target error) bool { return target == ErrInvalidDeviceName }

// UnsafeDeviceError is returned for fixed disks when no override was given.
type UnsafeDeviceError struct {
	Name string
	Path string
}

func (e *UnsafeDeviceError) Error() string {
	return fmt.Sprintf("the given block device is neither removable nor a loop device: %s", e.Name)
}

func (e *UnsafeDeviceError) Is(target error) bool { return target == ErrUnsafeDevice }

type PartitionNotFoundError struct {
	Device string
	Index  uint8
	Path   string
	Err    error
}

func (e *PartitionNotFoundError) Error() string {
	return fmt.Sprintf("partition %d of %s does not exist (%s)", e.Index, e.Device, e.Path)
}

func (e *PartitionNotFoundError) Unwrap() error { return e.Err }

func (e *PartitionNotFoundError) Is(target error) bool { return target == ErrPartitionNotFound }
