package device

import (
	"errors"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/assapir/alma/internal/logger"
	"github.com/assapir/alma/internal/platform"
)

// SectorSize is the unit the registry reports device sizes in.
const SectorSize = 512

const cdromModel = "CD-ROM"

var errSizeOverflow = errors.New("sector count overflows byte size")

// Device is a candidate write target as seen by one registry scan.
type Device struct {
	Name      string
	Model     string
	Vendor    string
	Size      uint64
	Removable bool
	Loop      bool
}

func (d Device) String() string {
	return fmt.Sprintf("%s %s (%s)", d.Vendor, d.Model, humanize.IBytes(d.Size))
}

// ListStorageDevices scans the live kernel registry.
func ListStorageDevices(allowNonRemovable bool) ([]Device, error) {
	return Enumerate(platform.DefaultRegistry(), allowNonRemovable)
}

// Enumerate lists the devices in reg. Unless allowNonRemovable is set only
// removable devices are returned. CD-ROM drives are never returned.
//
// A device whose attributes cannot be read is left out without an error;
// only an unreadable registry root fails the scan.
func Enumerate(reg platform.Registry, allowNonRemovable bool) ([]Device, error) {
	names, err := reg.List()
	if err != nil {
		return nil, err
	}

	var devices []Device
	for _, name := range names {
		dev, ok, err := probe(reg, name, allowNonRemovable)
		if err != nil {
			logger.Debug("Skipping unreadable block device", logger.String("device", name), logger.Err(err))
			continue
		}
		if !ok {
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// probe reads name's attributes in order and stops at the first failure or
// filter hit.
func probe(reg platform.Registry, name string, allowNonRemovable bool) (Device, bool, error) {
	removable, err := reg.Removable(name)
	if err != nil {
		return Device{}, false, err
	}
	if !allowNonRemovable && !removable {
		logger.Debug("Skipping non-removable block device", logger.String("device", name))
		return Device{}, false, nil
	}

	model, err := reg.Model(name)
	if err != nil {
		return Device{}, false, err
	}
	if model == cdromModel {
		logger.Debug("Skipping optical drive", logger.String("device", name))
		return Device{}, false, nil
	}

	vendor, err := reg.Vendor(name)
	if err != nil {
		return Device{}, false, err
	}

	sectors, err := reg.Sectors(name)
	if err != nil {
		return Device{}, false, err
	}
	size, err := SizeFromSectors(sectors)
	if err != nil {
		return Device{}, false, &platform.AttributeReadError{Device: name, Attribute: "size", Err: err}
	}

	return Device{
		Name:      name,
		Model:     model,
		Vendor:    vendor,
		Size:      size,
		Removable: removable,
		Loop:      reg.IsLoop(name),
	}, true, nil
}

// SizeFromSectors converts a sector count to bytes.
func SizeFromSectors(sectors uint64) (uint64, error) {
	if sectors > math.MaxUint64/SectorSize {
		return 0, errSizeOverflow
	}
	return sectors * SectorSize, nil
}

// Lookup returns the device called name from an unfiltered scan of reg.
func Lookup(reg platform.Registry, name string) (Device, bool, error) {
	devices, err := Enumerate(reg, true)
	if err != nil {
		return Device{}, false, err
	}
	for _, dev := range devices {
		if dev.Name == name {
			return dev, true, nil
		}
	}
	return Device{}, false, nil
}
