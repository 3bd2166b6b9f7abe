package platform

import (
	"errors"
	"fmt"
)

var (
	ErrRegistryAccess = errors.New("cannot read block device registry")
	ErrAttributeRead  = errors.New("cannot read block device attribute")
)

// RegistryAccessError means the registry root itself could not be listed.
type RegistryAccessError struct {
	Root string
	Err  error
}

func (e *RegistryAccessError) Error() string {
	return fmt.Sprintf("error querying storage devices in %s: %v", e.Root, e.Err)
}

func (e *RegistryAccessError) Unwrap() error { return e.Err }

func (e *RegistryAccessError) Is(target error) bool { return target == ErrRegistryAccess }

// AttributeReadError reports a per-device attribute that is missing or unparsable.
type AttributeReadError struct {
	Device    string
	Attribute string
	Err       error
}

func (e *AttributeReadError) Error() string {
	return fmt.Sprintf("error querying %s of block device %s: %v", e.Attribute, e.Device, e.Err)
}

func (e *AttributeReadError) Unwrap() error { return e.Err }

func (e *AttributeReadError) Is(target error) bool { return target == ErrAttributeRead }
