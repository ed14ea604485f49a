//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	landlock "github.com/landlock-lsm/go-landlock/landlock"

	"github.com/codefionn/planrunner/internal/logger"
)

// pythonEnvVars may point at interpreters, virtualenvs or caches the kernel
// needs to import packages.
var pythonEnvVars = []string{
	"VIRTUAL_ENV",
	"CONDA_PREFIX",
	"PYTHONPATH",
	"PYTHONHOME",
	"PIP_CACHE_DIR",
	"MPLCONFIGDIR",
}

// pythonHomeSubdirs are per-user locations of packages and caches.
var pythonHomeSubdirs = []string{
	".local/lib",
	".local/share/pipx",
	".cache/pip",
	".cache/matplotlib",
	".cache/huggingface",
	".pyenv",
	".conda",
	"miniconda3",
	"anaconda3",
}

// LandlockSandbox restricts the calling process and every child it spawns
// afterwards to an allow-list of paths.
type LandlockSandbox struct {
	cfg     LandlockConfig
	allowed []DirectoryPermission
}

// NewLandlockSandbox collects the allow-list for cfg. Nothing is restricted
// until Restrict is called.
func NewLandlockSandbox(cfg LandlockConfig) *LandlockSandbox {
	return &LandlockSandbox{cfg: cfg, allowed: defaultAllowedPaths(cfg)}
}

// Available reports whether this platform supports Landlock at all.
func (s *LandlockSandbox) Available() bool {
	return true
}

// AllowedPaths returns the paths the sandbox will grant.
func (s *LandlockSandbox) AllowedPaths() []DirectoryPermission {
	return append([]DirectoryPermission(nil), s.allowed...)
}

func defaultAllowedPaths(cfg LandlockConfig) []DirectoryPermission {
	var paths []DirectoryPermission
	homeDir, _ := os.UserHomeDir()
	seen := make(map[string]bool)

	add := func(p string, access AccessLevel) {
		if p == "" {
			return
		}
		abs := p
		if !filepath.IsAbs(p) {
			if homeDir == "" {
				return
			}
			abs = filepath.Join(homeDir, p)
		}
		abs = filepath.Clean(abs)
		if seen[abs] {
			return
		}
		if _, err := os.Stat(abs); err != nil {
			return
		}
		seen[abs] = true
		paths = append(paths, DirectoryPermission{Path: abs, Access: access})
	}
	addAbs := func(p string, access AccessLevel) {
		if p == "" {
			return
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		add(p, access)
	}

	addAbs(cfg.WorkDir, AccessReadWrite)
	addAbs(cfg.SpoolDir, AccessReadWrite)
	for _, p := range cfg.ReadWritePaths {
		addAbs(p, AccessReadWrite)
	}

	for _, p := range []string{"/dev/null", "/dev/zero", "/dev/random", "/dev/urandom", "/dev/shm"} {
		add(p, AccessReadWrite)
	}
	for _, p := range []string{os.TempDir(), "/tmp", "/var/tmp"} {
		add(p, AccessReadWrite)
	}

	for _, env := range pythonEnvVars {
		for _, p := range strings.Split(os.Getenv(env), ":") {
			addAbs(p, AccessReadWrite)
		}
	}
	for _, sub := range pythonHomeSubdirs {
		add(sub, AccessReadWrite)
	}

	for _, p := range []string{
		"/usr", "/bin", "/lib", "/lib64", "/etc", "/sbin",
		"/opt", "/proc", "/sys/fs/cgroup", "/nix/store", "/run/current-system/sw",
	} {
		add(p, AccessReadOnly)
	}
	for _, p := range cfg.ReadOnlyPaths {
		addAbs(p, AccessReadOnly)
	}
	if homeDir != "" {
		add(homeDir, AccessReadOnly)
	}

	return paths
}

// Restrict applies the rules to the current process. In best-effort mode
// an older kernel degrades to the strongest supported ABI.
func (s *LandlockSandbox) Restrict() error {
	rules := make([]landlock.Rule, 0, len(s.allowed))
	var ro, rw int
	for _, perm := range s.allowed {
		isDir := true
		if info, err := os.Stat(perm.Path); err == nil && !info.IsDir() {
			isDir = false
		}
		switch {
		case perm.Access == AccessReadWrite && isDir:
			rules = append(rules, landlock.RWDirs(perm.Path))
			rw++
		case perm.Access == AccessReadWrite:
			rules = append(rules, landlock.RWFiles(perm.Path))
			rw++
		case isDir:
			rules = append(rules, landlock.RODirs(perm.Path))
			ro++
		default:
			rules = append(rules, landlock.ROFiles(perm.Path))
			ro++
		}
	}

	var err error
	if s.cfg.BestEffort {
		err = landlock.V6.BestEffort().RestrictPaths(rules...)
	} else {
		err = landlock.V6.RestrictPaths(rules...)
	}
	if err != nil {
		return fmt.Errorf("landlock restriction failed: %w", err)
	}

	logger.Debug("Landlock restrictions applied: %d RO paths, %d RW paths", ro, rw)
	return nil
}
