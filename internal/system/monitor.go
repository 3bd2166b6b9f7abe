package system

import (
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/assapir/alma/internal/platform"
)

type HostInfo struct {
	Hostname string
	OS       string
	Platform string
	Kernel   string
	Uptime   uint64
}

type SystemMonitor struct {
	registry platform.Registry
	// partitions is swapped out in tests
	partitions func(all bool) ([]disk.PartitionStat, error)
}

func NewSystemMonitor(registry platform.Registry) *SystemMonitor {
	return &SystemMonitor{
		registry:   registry,
		partitions: disk.Partitions,
	}
}

// GetHostInfo returns basic facts about the running host.
func (sm *SystemMonitor) GetHostInfo() (HostInfo, error) {
	info, err := host.Info()
	if err != nil {
		return HostInfo{}, err
	}
	return HostInfo{
		Hostname: info.Hostname,
		OS:       info.OS,
		Platform: info.Platform,
		Kernel:   info.KernelVersion,
		Uptime:   info.Uptime,
	}, nil
}

// RootDisk returns the registry name of the disk holding the root
// filesystem. It returns "" when the root source is not a plain block device
// partition (device mapper, overlay, tmpfs...).
func (sm *SystemMonitor) RootDisk() (string, error) {
	partitions, err := sm.partitions(false)
	if err != nil {
		return "", err
	}

	var source string
	for _, partition := range partitions {
		if partition.Mountpoint == "/" {
			source = partition.Device
		}
	}
	if source == "" {
		return "", nil
	}
	if resolved, err := filepath.EvalSymlinks(source); err == nil {
		source = resolved
	}

	names, err := sm.registry.List()
	if err != nil {
		return "", err
	}
	base := filepath.Base(source)
	for _, name := range names {
		if platform.BelongsTo(base, name) {
			return name, nil
		}
	}
	return "", nil
}
