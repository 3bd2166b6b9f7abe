package platform

import (
	"strconv"
	"strings"
)

// DefaultDevDir holds block device and partition nodes.
const DefaultDevDir = "/dev"

// PartitionName returns the node name of partition index on device name.
// Names ending in a digit get a "p" separator (nvme0n1 -> nvme0n1p1),
// others take the index directly (sda -> sda1).
func PartitionName(name string, index uint8) string {
	if endsWithDigit(name) {
		return name + "p" + strconv.Itoa(int(index))
	}
	return name + strconv.Itoa(int(index))
}

// BelongsTo reports whether source is the device at devicePath or one of its
// partitions. The match stops at the partition suffix, so /dev/sda does not
// claim /dev/sdb, /dev/sdab or /dev/sda-other.
func BelongsTo(source, devicePath string) bool {
	if source == devicePath {
		return true
	}
	rest, ok := strings.CutPrefix(source, devicePath)
	if !ok {
		return false
	}
	if endsWithDigit(devicePath) {
		if rest, ok = strings.CutPrefix(rest, "p"); !ok {
			return false
		}
	}
	return isDigits(rest)
}

func endsWithDigit(s string) bool {
	return s != "" && isDigit(s[len(s)-1])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
