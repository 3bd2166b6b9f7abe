package platform

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// DefaultMountsFile is the kernel's live mount table.
const DefaultMountsFile = "/proc/mounts"

// MountEntry is one line of the mount table.
type MountEntry struct {
	Source     string
	MountPoint string
	FSType     string
}

// MountTable lists currently mounted filesystems.
type MountTable interface {
	Entries() ([]MountEntry, error)
}

// Unmounter detaches a single mount point.
type Unmounter interface {
	Unmount(target string) error
}

// ProcMountTable parses a /proc/mounts formatted file.
type ProcMountTable struct {
	Path string
}

// NewMountTable returns the mount table for the given source name.
// "proc" (or empty) reads file, "gopsutil" asks gopsutil.
func NewMountTable(source, file string) (MountTable, error) {
	switch source {
	case "", "proc":
		return ProcMountTable{Path: file}, nil
	case "gopsutil":
		return PartitionsMountTable{}, nil
	default:
		return nil, fmt.Errorf("unknown mount source %q", source)
	}
}

func (t ProcMountTable) Entries() ([]MountEntry, error) {
	file, err := os.Open(t.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", t.Path, err)
	}
	defer file.Close()

	var entries []MountEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		entry := MountEntry{
			Source:     unescapeMountField(fields[0]),
			MountPoint: unescapeMountField(fields[1]),
		}
		if len(fields) > 2 {
			entry.FSType = fields[2]
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", t.Path, err)
	}
	return entries, nil
}

// PartitionsMountTable reads the mount table through gopsutil.
type PartitionsMountTable struct{}

func (PartitionsMountTable) Entries() ([]MountEntry, error) {
	partitions, err := disk.Partitions(true)
	if err != nil {
		return nil, fmt.Errorf("unable to list mounted partitions: %w", err)
	}

	entries := make([]MountEntry, 0, len(partitions))
	for _, partition := range partitions {
		entries = append(entries, MountEntry{
			Source:     partition.Device,
			MountPoint: partition.Mountpoint,
			FSType:     partition.Fstype,
		})
	}
	return entries, nil
}

// unescapeMountField decodes the octal escapes the kernel uses for
// whitespace and backslashes, e.g. `\040` for a space.
func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
