package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/assapir/alma/internal/platform"
	"github.com/assapir/alma/internal/platform/sysfstest"
)

// MockUnmounter implements platform.Unmounter for testing
type MockUnmounter struct {
	mock.Mock
}

func (m *MockUnmounter) Unmount(target string) error {
	args := m.Called(target)
	return args.Error(0)
}

type MockHolderFinder struct {
	mock.Mock
}

func (m *MockHolderFinder) Holders(mountPoint string) ([]string, error) {
	args := m.Called(mountPoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type failingMountTable struct{}

func (failingMountTable) Entries() ([]platform.MountEntry, error) {
	return nil, errors.New("mount table unavailable")
}

func newTestValidator(tree *sysfstest.Tree, opts ...Option) *Validator {
	base := []Option{
		WithRegistry(tree.Registry()),
		WithMountTable(tree.MountTable()),
		WithDevDir(tree.DevDir()),
		WithUnmounter(&MockUnmounter{}),
		WithHolderFinder(nil),
	}
	return NewValidator(append(base, opts...)...)
}

func TestValidate_RemovableDevice(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.RemovableDisk("sdb", 100))

	dev, err := newTestValidator(tree).Validate(tree.DevPath("sdb"), false)
	require.NoError(t, err)
	assert.Equal(t, "sdb", dev.Name())
	assert.Equal(t, tree.DevPath("sdb"), dev.Path())
	assert.True(t, dev.Removable())
	assert.False(t, dev.Loop())
	assert.Empty(t, dev.MountConfig())
}

func TestValidate_FixedDeviceIsUnsafe(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.FixedDisk("sda", 100))
	tree.WriteMounts(tree.DevPath("sda") + "1 / ext4 rw 0 0")

	dev, err := newTestValidator(tree).Validate(tree.DevPath("sda"), false)
	assert.Nil(t, dev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsafeDevice))

	var unsafeErr *UnsafeDeviceError
	require.ErrorAs(t, err, &unsafeErr)
	assert.Equal(t, "sda", unsafeErr.Name)
	assert.Contains(t, err.Error(), "sda")
}

func TestValidate_FixedDeviceWithOverride(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.FixedDisk("sda", 100))

	dev, err := newTestValidator(tree).Validate(tree.DevPath("sda"), true)
	require.NoError(t, err)
	assert.Equal(t, "sda", dev.Name())
	assert.False(t, dev.Removable())
}

func TestValidate_LoopDeviceIsAlwaysSafe(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.LoopDisk("loop0"))

	dev, err := newTestValidator(tree).Validate(tree.DevPath("loop0"), false)
	require.NoError(t, err)
	assert.True(t, dev.Loop())
	assert.False(t, dev.Removable())
}

func TestValidate_MissingRemovableFlagIsFatal(t *testing.T) {
	tree := sysfstest.New(t)
	loop := sysfstest.LoopDisk("loop1")
	loop.Removable = nil
	tree.AddDisk(loop)

	for _, allow := range []bool{false, true} {
		_, err := newTestValidator(tree).Validate(tree.DevPath("loop1"), allow)
		require.Error(t, err)
		assert.True(t, errors.Is(err, platform.ErrAttributeRead))

		var attrErr *platform.AttributeReadError
		require.ErrorAs(t, err, &attrErr)
		assert.Equal(t, "removable", attrErr.Attribute)
		assert.Equal(t, "loop1", attrErr.Device)
	}
}

func TestValidate_UnknownToRegistry(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddNode("sdq")

	_, err := newTestValidator(tree).Validate(tree.DevPath("sdq"), true)
	assert.True(t, errors.Is(err, platform.ErrAttributeRead))
}

func TestValidate_PathDoesNotExist(t *testing.T) {
	tree := sysfstest.New(t)

	_, err := newTestValidator(tree).Validate(tree.DevPath("sdz"), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPathResolution))

	var resolveErr *PathResolutionError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, tree.DevPath("sdz"), resolveErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_InvalidDeviceName(t *testing.T) {
	tree := sysfstest.New(t)

	_, err := newTestValidator(tree).Validate("/", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDeviceName))
}

func TestValidate_ResolvesSymlinks(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.RemovableDisk("sdb", 100))

	byID := filepath.Join(tree.DevDir(), "disk", "by-id")
	require.NoError(t, os.MkdirAll(byID, 0755))
	link := filepath.Join(byID, "usb-SanDisk_Cruzer_Blade-0:0")
	require.NoError(t, os.Symlink("../../sdb", link))

	dev, err := newTestValidator(tree).Validate(link, false)
	require.NoError(t, err)
	assert.Equal(t, "sdb", dev.Name())
	assert.Equal(t, tree.DevPath("sdb"), dev.Path())
}

func TestValidate_RelativePath(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.RemovableDisk("sdb", 100))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tree.DevDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	dev, err := newTestValidator(tree).Validate("./sdb", false)
	require.NoError(t, err)
	assert.Equal(t, tree.DevPath("sdb"), dev.Path())
}

func TestValidate_CapturesDeviceAndPartitionMounts(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.RemovableDisk("sda", 100))
	sda := tree.DevPath("sda")
	tree.WriteMounts(
		sda+" /mnt/whole vfat rw 0 0",
		"proc /proc proc rw 0 0",
		sda+"1 /media/boot vfat rw 0 0",
		sda+"2 /media/root\\040fs ext4 rw 0 0",
		tree.DevPath("sdab")+"1 /media/other ext4 rw 0 0",
		sda+"-other /media/unrelated ext4 rw 0 0",
	)

	dev, err := newTestValidator(tree).Validate(sda, false)
	require.NoError(t, err)
	assert.Equal(t, []MountConfig{
		{MountPoint: "/mnt/whole"},
		{MountPoint: "/media/boot"},
		{MountPoint: "/media/root fs"},
	}, dev.MountConfig())
}

func TestValidate_NVMeStyleMounts(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.RemovableDisk("nvme0n1", 100))
	nvme := tree.DevPath("nvme0n1")
	tree.WriteMounts(
		nvme+"p1 /boot vfat rw 0 0",
		nvme+"1 /elsewhere ext4 rw 0 0",
	)

	dev, err := newTestValidator(tree).Validate(nvme, false)
	require.NoError(t, err)
	assert.Equal(t, []MountConfig{{MountPoint: "/boot"}}, dev.MountConfig())
}

func TestValidate_MountTableUnreadable(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.RemovableDisk("sdb", 100))

	_, err := newTestValidator(tree, WithMountTable(failingMountTable{})).Validate(tree.DevPath("sdb"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mount table")
}

func TestValidate_MountTableNotReadForUnsafeDevice(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.FixedDisk("sda", 100))

	_, err := newTestValidator(tree, WithMountTable(failingMountTable{})).Validate(tree.DevPath("sda"), false)
	assert.True(t, errors.Is(err, ErrUnsafeDevice))
}

func TestMountConfig_ReturnsCopy(t *testing.T) {
	tree := sysfstest.New(t)
	tree.AddDisk(sysfstest.RemovableDisk("sdb", 100))
	tree.WriteMounts(tree.DevPath("sdb") + "1 /media/usb vfat rw 0 0")

	dev, err := newTestValidator(tree).Validate(tree.DevPath("sdb"), false)
	require.NoError(t, err)

	mounts := dev.MountConfig()
	mounts[0].MountPoint = "/changed"
	assert.Equal(t, "/media/usb", dev.MountConfig()[0].MountPoint)
}
