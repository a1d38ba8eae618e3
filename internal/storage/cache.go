package storage

import (
	"sync"

	"github.com/raphi011/pinpoint/internal/model"
)

// Cache is an in-memory result collector that keeps the latest outcome of every test
// it is notified about.
type Cache struct {
	m sync.Map
}

var _ model.ResultCollector = &Cache{}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Start(d model.Description) {
	c.m.Store(d, model.Outcome{Status: model.StatusPending})
}

func (c *Cache) Complete(d model.Description, o model.Outcome) {
	c.m.Store(d, o)
}

// Load returns the latest outcome of d. A started test that has not completed yet
// has a pending outcome.
func (c *Cache) Load(d model.Description) (model.Outcome, error) {
	val, ok := c.m.Load(d)
	if !ok {
		return model.Outcome{}, model.NotFoundError{Kind: "outcome", Name: d.String()}
	}

	return val.(model.Outcome), nil
}
