package system

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

type ProcessManager struct{}

func NewProcessManager() *ProcessManager {
	return &ProcessManager{}
}

// FindProcessesUsing returns processes with an open file or working
// directory below mountPoint.
func (pm *ProcessManager) FindProcessesUsing(mountPoint string) ([]*process.Process, error) {
	processes, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var matches []*process.Process
	for _, proc := range processes {
		if cwd, err := proc.Cwd(); err == nil && underPath(cwd, mountPoint) {
			matches = append(matches, proc)
			continue
		}

		files, err := proc.OpenFiles()
		if err != nil {
			continue
		}
		for _, file := range files {
			if underPath(file.Path, mountPoint) {
				matches = append(matches, proc)
				break
			}
		}
	}

	return matches, nil
}

// Holders describes the processes keeping mountPoint busy as "name[pid]".
func (pm *ProcessManager) Holders(mountPoint string) ([]string, error) {
	procs, err := pm.FindProcessesUsing(mountPoint)
	if err != nil {
		return nil, err
	}

	holders := make([]string, 0, len(procs))
	for _, proc := range procs {
		name, _ := proc.Name()
		holders = append(holders, fmt.Sprintf("%s[%d]", name, proc.Pid))
	}
	return holders, nil
}

func underPath(path, root string) bool {
	if root == "/" {
		return strings.HasPrefix(path, "/")
	}
	root = filepath.Clean(root)
	return path == root || strings.HasPrefix(path, root+"/")
}
