package unit

import "github.com/raphi011/pinpoint/internal/engine"

// BuildSuite returns the run definition that selects exactly one method of a class.
// The suite is named after the class and the test after the method, so building it
// twice yields two distinct values with identical names.
func BuildSuite(className, methodName string) engine.SuiteSpec {
	return engine.SuiteSpec{
		Name: className,
		Tests: []engine.TestSpec{{
			Name: methodName,
			Classes: []engine.ClassSpec{{
				Name:     className,
				Includes: []engine.Include{{Method: methodName}},
			}},
		}},
	}
}
