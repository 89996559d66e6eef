package items

// Package items provides the item catalog consulted when remote
// records are pulled back into local slots. The catalog only stores
// display metadata; the sync engine treats item identities as opaque.

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ItemID represents an application-defined identifier for an item.
// The catalog does not interpret this value.
type ItemID string

// Details captures metadata about an item that is useful for display
// but not required by the reconciliation engine itself.
type Details struct {
	ID          ItemID `yaml:"id" json:"id"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	StackCap    int    `yaml:"stack_cap,omitempty" json:"stackCap,omitempty"`
	Placeholder bool   `yaml:"-" json:"placeholder,omitempty"`
}

// Catalog stores item details keyed by ItemID.
type Catalog struct {
	mu    sync.RWMutex
	items map[ItemID]Details
}

// NewCatalog constructs an empty catalog and optionally seeds it with
// initial item details.
func NewCatalog(details ...Details) *Catalog {
	c := &Catalog{items: make(map[ItemID]Details, len(details))}
	for _, d := range details {
		_ = c.Register(d) // ignore duplicates during seed
	}
	return c
}

// LoadCatalog reads item details from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var doc struct {
		Items []Details `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	c := NewCatalog()
	for _, d := range doc.Items {
		if err := c.Register(d); err != nil {
			return nil, fmt.Errorf("invalid catalog entry: %w", err)
		}
	}
	return c, nil
}

// Register inserts or updates metadata for an item. The ID must be
// non-empty.
func (c *Catalog) Register(d Details) error {
	if d.ID == "" {
		return errors.New("items: details missing id")
	}
	if d.StackCap == 0 {
		d.StackCap = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[ItemID]Details)
	}
	c.items[d.ID] = d
	return nil
}

// Resolve returns details for the provided ID, if present.
func (c *Catalog) Resolve(id ItemID) (Details, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.items == nil {
		return Details{}, false
	}
	d, ok := c.items[id]
	return d, ok
}

// ResolveOrPlaceholder returns details for the provided ID, degrading
// to a placeholder entry when the identity is unknown. Reloading local
// state from the server must not fail on an unresolvable item.
func (c *Catalog) ResolveOrPlaceholder(id ItemID) Details {
	if d, ok := c.Resolve(id); ok {
		return d
	}
	return Details{
		ID:          id,
		Name:        "Unknown Item",
		StackCap:    1,
		Placeholder: true,
	}
}

// StackCapFor returns the stack cap for the item, defaulting to 1 for
// unknown identities.
func (c *Catalog) StackCapFor(id ItemID) int {
	d := c.ResolveOrPlaceholder(id)
	if d.StackCap <= 0 {
		return 1
	}
	return d.StackCap
}

// Export copies catalog contents into a slice sorted by ItemID,
// suitable for sending to clients.
func (c *Catalog) Export() []Details {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.items) == 0 {
		return nil
	}
	out := make([]Details, 0, len(c.items))
	for _, d := range c.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
