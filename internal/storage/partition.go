package storage

// BlockDevice is anything addressable through a device node.
type BlockDevice interface {
	Path() string
}

// Origin marks a block device that passed validation. It is sealed: only
// *StorageDevice implements it, so a Partition can never be derived from an
// unchecked path.
type Origin interface {
	BlockDevice
	origin()
}

// Partition is a partition node of a validated device.
type Partition struct {
	path   string
	index  uint8
	parent string
}

func newPartition(origin Origin, path string, index uint8) *Partition {
	return &Partition{
		path:   path,
		index:  index,
		parent: origin.Path(),
	}
}

func (p *Partition) Path() string { return p.path }

// Index is the 1-based partition number.
func (p *Partition) Index() uint8 { return p.index }

// Parent is the canonical path of the device the partition belongs to.
func (p *Partition) Parent() string { return p.parent }
