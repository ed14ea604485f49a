//go:build !linux && !windows

package procgroup

import (
	"bufio"
	"bytes"
	"os/exec"
	"strconv"
	"strings"
)

// parentTable maps every visible pid to its parent pid using ps.
func parentTable() (map[int]int, error) {
	out, err := exec.Command("ps", "-A", "-o", "pid=", "-o", "ppid=").Output()
	if err != nil {
		return nil, err
	}
	parents := make(map[int]int)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		parents[pid] = ppid
	}
	return parents, sc.Err()
}
