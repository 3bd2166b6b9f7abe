// Package sysfstest builds fake block device registries, device directories
// and mount tables for tests.
package sysfstest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/assapir/alma/internal/platform"
)

// Tree is a temporary root holding sys/block, dev and a mounts file.
type Tree struct {
	t    testing.TB
	Root string
}

// Disk describes one registry entry. Nil pointer fields leave the
// attribute file out.
type Disk struct {
	Name      string
	Removable *string
	Model     *string
	Vendor    *string
	Size      *string
	Loop      bool
	// Node creates <dev>/<Name> when set.
	Node bool
}

func Str(s string) *string { return &s }

// RemovableDisk is a complete USB stick style entry.
func RemovableDisk(name string, sectors uint64) Disk {
	return Disk{
		Name:      name,
		Removable: Str("1\n"),
		Model:     Str("Cruzer Blade    \n"),
		Vendor:    Str("SanDisk \n"),
		Size:      Str(strconv.FormatUint(sectors, 10) + "\n"),
		Node:      true,
	}
}

// FixedDisk is a complete internal disk entry.
func FixedDisk(name string, sectors uint64) Disk {
	return Disk{
		Name:      name,
		Removable: Str("0\n"),
		Model:     Str("Samsung SSD 970\n"),
		Vendor:    Str("ATA     \n"),
		Size:      Str(strconv.FormatUint(sectors, 10) + "\n"),
		Node:      true,
	}
}

// LoopDisk is a loop device entry. Loop devices have no device/ directory.
func LoopDisk(name string) Disk {
	return Disk{
		Name:      name,
		Removable: Str("0\n"),
		Size:      Str("2048\n"),
		Loop:      true,
		Node:      true,
	}
}

func New(t testing.TB) *Tree {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	tree := &Tree{t: t, Root: root}
	require.NoError(t, os.MkdirAll(tree.BlockDir(), 0755))
	require.NoError(t, os.MkdirAll(tree.DevDir(), 0755))
	tree.WriteMounts()
	return tree
}

func (tr *Tree) BlockDir() string   { return filepath.Join(tr.Root, "sys", "block") }
func (tr *Tree) DevDir() string     { return filepath.Join(tr.Root, "dev") }
func (tr *Tree) MountsFile() string { return filepath.Join(tr.Root, "mounts") }

func (tr *Tree) Registry() platform.Registry {
	return platform.NewRegistry(tr.BlockDir())
}

func (tr *Tree) MountTable() platform.MountTable {
	return platform.ProcMountTable{Path: tr.MountsFile()}
}

// DevPath is the node path of name in the fake device directory.
func (tr *Tree) DevPath(name string) string {
	return filepath.Join(tr.DevDir(), name)
}

func (tr *Tree) AddDisk(d Disk) {
	tr.t.Helper()
	dir := filepath.Join(tr.BlockDir(), d.Name)
	require.NoError(tr.t, os.MkdirAll(dir, 0755))

	tr.writeAttr(dir, "removable", d.Removable)
	tr.writeAttr(dir, "device/model", d.Model)
	tr.writeAttr(dir, "device/vendor", d.Vendor)
	tr.writeAttr(dir, "size", d.Size)
	if d.Loop {
		require.NoError(tr.t, os.MkdirAll(filepath.Join(dir, "loop"), 0755))
	}
	if d.Node {
		tr.AddNode(d.Name)
	}
}

// AddNode creates an empty file standing in for a device node.
func (tr *Tree) AddNode(name string) {
	tr.t.Helper()
	require.NoError(tr.t, os.WriteFile(tr.DevPath(name), nil, 0644))
}

// WriteMounts replaces the mount table with the given lines.
func (tr *Tree) WriteMounts(lines ...string) {
	tr.t.Helper()
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	require.NoError(tr.t, os.WriteFile(tr.MountsFile(), []byte(content), 0644))
}

func (tr *Tree) writeAttr(dir, attr string, value *string) {
	if value == nil {
		return
	}
	path := filepath.Join(dir, filepath.FromSlash(attr))
	require.NoError(tr.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(tr.t, os.WriteFile(path, []byte(*value), 0644))
}
