// Package isolation implements isolation contexts: independent sets of test class
// definitions. Two loaders never share state, even when they define classes with the
// same name, and every loaded class remembers the loader that defined it.
package isolation

import (
	"errors"
	"sync"

	"github.com/raphi011/pinpoint/internal/model"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Loader is an isolation context. Lookups are delegated parent-first, so a class
// loaded through a child loader may have been defined by one of its ancestors.
//
// A Loader is safe for concurrent use.
type Loader struct {
	name   string
	parent *Loader

	lock    sync.Mutex
	classes map[string]*Class
}

// NewLoader creates an isolation context that defines the given classes. parent may be nil.
func NewLoader(name string, parent *Loader, classes ...model.TestClass) (*Loader, error) {
	l := &Loader{
		name:    name,
		parent:  parent,
		classes: make(map[string]*Class, len(classes)),
	}

	for _, c := range classes {
		if _, err := l.Define(c); err != nil {
			return nil, err
		}
	}

	return l, nil
}

func (l *Loader) Name() string {
	return l.name
}

func (l *Loader) String() string {
	if l == nil {
		return "<nil>"
	}
	return l.name
}

// Define adds a class definition to this loader. The method table is copied, later
// changes to def do not affect the defined class. A class that is already visible
// through the parent chain cannot be defined again, lookups would never reach it.
func (l *Loader) Define(def model.TestClass) (*Class, error) {
	if def.Name == "" {
		return nil, errors.New("defining class: name must not be empty")
	}

	if l.parent != nil && l.parent.find(def.Name) != nil {
		return nil, model.DuplicateError{Kind: "class", Name: def.Name}
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if _, ok := l.classes[def.Name]; ok {
		return nil, model.DuplicateError{Kind: "class", Name: def.Name}
	}

	methods := make(map[string]model.TestFunc, len(def.Methods))
	for name, fn := range def.Methods {
		methods[name] = fn
	}
	def.Methods = methods

	c := &Class{def: def, loader: l}
	l.classes[def.Name] = c

	return c, nil
}

// Load looks a class up by name and runs its static initializer in the defining
// loader if that has not happened yet.
func (l *Loader) Load(name string) (*Class, error) {
	c := l.find(name)
	if c == nil {
		return nil, model.NotFoundError{Kind: "class", Name: name}
	}

	if err := c.initialize(); err != nil {
		return nil, err
	}

	return c, nil
}

// Classes returns the sorted names of the classes defined by this loader. Classes
// visible through the parent are not included.
func (l *Loader) Classes() []string {
	l.lock.Lock()
	names := maps.Keys(l.classes)
	l.lock.Unlock()

	slices.Sort(names)

	return names
}

func (l *Loader) find(name string) *Class {
	if l.parent != nil {
		if c := l.parent.find(name); c != nil {
			return c
		}
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	return l.classes[name]
}
