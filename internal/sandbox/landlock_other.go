//go:build !linux

package sandbox

import "github.com/codefionn/planrunner/internal/logger"

// LandlockSandbox is a no-op implementation for non-Linux systems.
type LandlockSandbox struct {
	cfg LandlockConfig
}

// NewLandlockSandbox creates a new sandbox (no-op on non-Linux).
func NewLandlockSandbox(cfg LandlockConfig) *LandlockSandbox {
	return &LandlockSandbox{cfg: cfg}
}

// Available reports whether this platform supports Landlock at all.
func (s *LandlockSandbox) Available() bool {
	return false
}

// AllowedPaths returns nothing; there is no allow-list to enforce.
func (s *LandlockSandbox) AllowedPaths() []DirectoryPermission {
	return nil
}

// Restrict logs and returns nil.
func (s *LandlockSandbox) Restrict() error {
	logger.Debug("Landlock sandboxing not available on this platform, worker %s runs unrestricted", s.cfg.WorkDir)
	return nil
}
