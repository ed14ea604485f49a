//go:build !windows

package procgroup

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodeNormal(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "exit 3")
	err := cmd.Run()

	code, ok := ExitCodeFromError(err)
	require.True(t, ok)
	assert.Equal(t, 3, code)
	assert.Equal(t, 3, ExitCode(cmd.ProcessState))
}

func TestKillGroupReportsSignalCode(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "sleep 30 & wait")
	Configure(cmd)
	require.NoError(t, cmd.Start())

	pgid := ID(cmd)
	require.Equal(t, cmd.Process.Pid, pgid)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	require.NoError(t, Kill(pgid))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process group did not die")
	}
	assert.Equal(t, 137, ExitCode(cmd.ProcessState))
}

func TestKillTreeSparesCallerGroup(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "late")
	cmd := exec.Command("/bin/sh", "-c", "(sleep 2; touch "+marker+") & sleep 30")
	require.NoError(t, cmd.Start())
	require.Equal(t, syscall.Getpgrp(), ID(cmd), "child shares the test's group")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, KillTree(cmd.Process.Pid))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process tree did not die")
	}
	assert.Equal(t, 137, ExitCode(cmd.ProcessState))

	time.Sleep(2500 * time.Millisecond)
	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "background child should die with its parent")
}

func TestExitCodeUnknown(t *testing.T) {
	assert.Equal(t, -1, ExitCode(nil))
	_, ok := ExitCodeFromError(assert.AnError)
	assert.False(t, ok)
	assert.Error(t, Signal(0, 0))
	assert.Error(t, KillTree(0))
}
