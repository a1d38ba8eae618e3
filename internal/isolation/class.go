package isolation

import (
	"sync"

	"github.com/raphi011/pinpoint/internal/model"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Class is a test class as defined by a specific Loader.
type Class struct {
	def    model.TestClass
	loader *Loader

	once    sync.Once
	initErr error
}

func (c *Class) Name() string {
	return c.def.Name
}

// Loader returns the isolation context that defined the class.
func (c *Class) Loader() *Loader {
	return c.loader
}

func (c *Class) Definition() model.TestClass {
	return c.def
}

func (c *Class) Method(name string) (model.TestFunc, bool) {
	fn, ok := c.def.Methods[name]
	return fn, ok
}

// Methods returns the sorted method names of the class.
func (c *Class) Methods() []string {
	names := maps.Keys(c.def.Methods)
	slices.Sort(names)

	return names
}

func (c *Class) initialize() error {
	c.once.Do(func() {
		if c.def.Init == nil {
			return
		}

		defer func() {
			if r := recover(); r != nil {
				c.initErr = &InitError{Class: c.def.Name, Loader: c.loader.name, Value: r}
			}
		}()

		c.def.Init()
	})

	return c.initErr
}
