package isolation

import (
	"fmt"
	"path/filepath"
	"plugin"

	"github.com/raphi011/pinpoint/internal/model"
)

// ClassesSymbol is the function a test library must export:
//
//	func Classes() []pinpoint.TestClass
const ClassesSymbol = "Classes"

// LoadLibrary opens a test library built with `go build -buildmode=plugin` and returns a
// new isolation context defining the classes it exports. The Go runtime opens a given
// plugin file only once per process, a fresh isolation context therefore needs a
// fresh library file.
func LoadLibrary(path string, parent *Loader) (*Loader, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening test library %q: %w", path, err)
	}

	sym, err := p.Lookup(ClassesSymbol)
	if err != nil {
		return nil, fmt.Errorf("looking up %s in test library %q: %w", ClassesSymbol, path, err)
	}

	classes, ok := sym.(func() []model.TestClass)
	if !ok {
		return nil, fmt.Errorf("test library %q: %s has type %T, expected func() []TestClass", path, ClassesSymbol, sym)
	}

	l, err := NewLoader(filepath.Base(path), parent, classes()...)
	if err != nil {
		return nil, fmt.Errorf("test library %q: %w", path, err)
	}

	return l, nil
}
