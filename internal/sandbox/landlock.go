package sandbox

// AccessLevel represents the type of filesystem access granted to a path.
type AccessLevel int

const (
	// AccessReadOnly grants read-only access (read files, list directories)
	AccessReadOnly AccessLevel = iota
	// AccessReadWrite grants read and write access
	AccessReadWrite
)

func (a AccessLevel) String() string {
	if a == AccessReadWrite {
		return "rw"
	}
	return "ro"
}

// DirectoryPermission represents a directory path with its access level.
type DirectoryPermission struct {
	Path   string
	Access AccessLevel
}

// LandlockConfig lists the paths a worker may touch once restricted.
// WorkDir and SpoolDir are always read-write.
type LandlockConfig struct {
	WorkDir        string
	SpoolDir       string
	ReadOnlyPaths  []string
	ReadWritePaths []string
	BestEffort     bool
}
