package database

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// Catalog manages a collection of named tables.
type Catalog struct {
	tables map[string]Table
	mu     sync.RWMutex
}

func NewCatalog() *Catalog {
	return &Catalog{
		tables: make(map[string]Table),
	}
}

// RegisterTable adds a table to the catalog, replacing any table of the
// same name.
func (c *Catalog) RegisterTable(name string, t Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = t
}

// GetTable retrieves a table by name.
func (c *Catalog) GetTable(name string) (Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	if !ok {
		return nil, errors.Newf("table %q not found", name)
	}
	return t, nil
}

// Names lists the registered tables in lexical order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
