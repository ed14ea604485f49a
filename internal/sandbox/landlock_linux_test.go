//go:build linux

package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLandlockAllowedPaths(t *testing.T) {
	work := t.TempDir()
	spool := t.TempDir()
	extraRO := t.TempDir()

	sb := NewLandlockSandbox(LandlockConfig{
		WorkDir:       work,
		SpoolDir:      spool,
		ReadOnlyPaths: []string{extraRO, filepath.Join(extraRO, "missing")},
	})
	if !sb.Available() {
		t.Fatal("expected landlock to be available on linux builds")
	}

	paths := sb.AllowedPaths()
	find := func(p string) (DirectoryPermission, bool) {
		for _, perm := range paths {
			if perm.Path == p {
				return perm, true
			}
		}
		return DirectoryPermission{}, false
	}

	t.Run("work and spool are writable", func(t *testing.T) {
		for _, dir := range []string{work, spool} {
			perm, ok := find(dir)
			if !ok || perm.Access != AccessReadWrite {
				t.Errorf("expected %s to be read-write, got %+v (found=%v)", dir, perm, ok)
			}
		}
	})

	t.Run("configured read-only path is kept", func(t *testing.T) {
		perm, ok := find(extraRO)
		if !ok || perm.Access != AccessReadOnly {
			t.Errorf("expected %s to be read-only, got %+v (found=%v)", extraRO, perm, ok)
		}
	})

	t.Run("missing paths are skipped", func(t *testing.T) {
		if _, ok := find(filepath.Join(extraRO, "missing")); ok {
			t.Error("missing path should not be granted")
		}
	})

	t.Run("system paths are read-only", func(t *testing.T) {
		if _, err := os.Stat("/usr"); err != nil {
			t.Skip("/usr not present")
		}
		perm, ok := find("/usr")
		if !ok || perm.Access != AccessReadOnly {
			t.Errorf("expected /usr to be read-only, got %+v (found=%v)", perm, ok)
		}
	})

	t.Run("no duplicates", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, perm := range paths {
			if seen[perm.Path] {
				t.Errorf("duplicate path %s", perm.Path)
			}
			seen[perm.Path] = true
		}
	})
}

func TestAccessLevelString(t *testing.T) {
	if AccessReadOnly.String() != "ro" || AccessReadWrite.String() != "rw" {
		t.Errorf("unexpected access strings: %s %s", AccessReadOnly, AccessReadWrite)
	}
}
