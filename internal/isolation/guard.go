package isolation

// DetectionStrategy decides whether a class was defined under a different isolation
// context than the one supplied for a run.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Side effects: implementations only inspect the class and the loader, they never
// load, define or initialize classes.
type DetectionStrategy interface {
	FromDifferentLoader(c *Class, current *Loader) bool
}

// DetectionFunc adapts a function to a DetectionStrategy.
type DetectionFunc func(c *Class, current *Loader) bool

func (f DetectionFunc) FromDifferentLoader(c *Class, current *Loader) bool {
	return f(c, current)
}

// DefaultDetection returns the strategy that compares the defining loader of a class
// with the current one.
func DefaultDetection() DetectionStrategy {
	return DetectionFunc(ViolatesIsolation)
}

// ViolatesIsolation reports whether c was defined by a loader other than current.
// A class found through parent delegation belongs to the parent and therefore
// violates the isolation of the child, and so does a class that a lookup through
// current would not resolve to. Missing values count as a violation.
func ViolatesIsolation(c *Class, current *Loader) bool {
	if c == nil || current == nil {
		return true
	}

	if c.loader != current {
		return true
	}

	// a class defined after c under the same name in an ancestor shadows c
	return current.find(c.Name()) != c
}
