package platform

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// DefaultRegistryRoot holds one directory per block device known to the kernel.
const DefaultRegistryRoot = "/sys/block"

// Registry reads block device attributes from a sysfs style tree rooted at Root.
type Registry struct {
	Root string
}

// NewRegistry returns a registry reading from root.
func NewRegistry(root string) Registry {
	return Registry{Root: root}
}

// DefaultRegistry reads the live kernel registry.
func DefaultRegistry() Registry {
	return NewRegistry(DefaultRegistryRoot)
}

func (r Registry) devicePath(name string, elem ...string) string {
	return filepath.Join(append([]string{r.Root, name}, elem...)...)
}

// List returns the names of all block devices in the registry.
func (r Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.Root)
	if err != nil {
		return nil, &RegistryAccessError{Root: r.Root, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// Removable reports whether the kernel marks the device as hot-pluggable.
// Only the literal "1" (with an optional trailing newline) counts.
func (r Registry) Removable(name string) (bool, error) {
	data, err := r.readAttribute(name, "removable")
	if err != nil {
		return false, err
	}
	return strings.TrimSuffix(data, "\n") == "1", nil
}

// IsLoop reports whether the device is a loop device. Only the presence of
// the marker matters, not its content.
func (r Registry) IsLoop(name string) bool {
	_, err := os.Stat(r.devicePath(name, "loop"))
	return err == nil
}

// Model returns the device model with trailing padding removed.
func (r Registry) Model(name string) (string, error) {
	data, err := r.readAttribute(name, "device/model")
	if err != nil {
		return "", err
	}
	return strings.TrimRightFunc(data, unicode.IsSpace), nil
}

// Vendor returns the device vendor with trailing padding removed.
func (r Registry) Vendor(name string) (string, error) {
	data, err := r.readAttribute(name, "device/vendor")
	if err != nil {
		return "", err
	}
	return strings.TrimRightFunc(data, unicode.IsSpace), nil
}

// Sectors returns the device size in 512-byte sectors.
func (r Registry) Sectors(name string) (uint64, error) {
	data, err := r.readAttribute(name, "size")
	if err != nil {
		return 0, err
	}
	sectors, err := strconv.ParseUint(strings.TrimSpace(data), 10, 64)
	if err != nil {
		return 0, &AttributeReadError{Device: name, Attribute: "size", Err: err}
	}
	return sectors, nil
}

func (r Registry) readAttribute(name, attribute string) (string, error) {
	path := r.devicePath(name, filepath.FromSlash(attribute))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &AttributeReadError{Device: name, Attribute: attribute, Err: err}
	}
	return string(data), nil
}
