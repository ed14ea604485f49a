package syntax

// PythonAnalysis summarises the structure of a python snippet.
type PythonAnalysis struct {
	// Valid is false when the snippet does not parse; the other fields are
	// then empty.
	Valid bool
	// Statements counts top-level statements, comments excluded.
	Statements int
	// TopLevelTargets lists names bound by top-level assignments.
	TopLevelTargets []string
	// Assigned lists names bound by any assignment in the snippet.
	Assigned []string
}

// AssignsAny reports whether any assignment binds one of names.
func (a *PythonAnalysis) AssignsAny(names ...string) bool {
	return containsAny(a.Assigned, names)
}

// TopLevelAssignsAll reports whether top-level assignments bind every name.
func (a *PythonAnalysis) TopLevelAssignsAll(names ...string) bool {
	for _, name := range names {
		if !containsAny(a.TopLevelTargets, []string{name}) {
			return false
		}
	}
	return true
}

func containsAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
