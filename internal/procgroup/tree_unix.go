//go:build !windows

package procgroup

import (
	"errors"
	"syscall"
)

// KillTree kills pid and every process descending from it without touching
// the rest of its process group. Each descendant is stopped as soon as it is
// found so the tree cannot grow while it is being walked.
func KillTree(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	if err := syscall.Kill(pid, syscall.SIGSTOP); err != nil {
		return err
	}

	tree := []int{pid}
	seen := map[int]bool{pid: true}
	for {
		parents, err := parentTable()
		if err != nil {
			break
		}
		grew := false
		for child, parent := range parents {
			if seen[child] || !seen[parent] {
				continue
			}
			seen[child] = true
			tree = append(tree, child)
			_ = syscall.Kill(child, syscall.SIGSTOP)
			grew = true
		}
		if !grew {
			break
		}
	}

	for i := len(tree) - 1; i >= 0; i-- {
		_ = syscall.Kill(tree[i], syscall.SIGKILL)
	}
	return nil
}
