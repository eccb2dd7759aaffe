// Package curriculum holds the ordered, read-only course catalog.
package curriculum

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

var (
	ErrEmptyCatalog   = errors.New("catalog has no modules")
	ErrInvalidModule  = errors.New("invalid module")
	ErrModuleNotFound = errors.New("module not found")
)

var unlockCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]*$`)

// Catalog is the ordered sequence of modules. It is immutable once built and
// safe for concurrent use.
type Catalog struct {
	modules []Module
	byID    map[string]int
}

// NewCatalog orders modules by Position, assigns each its Ordinal and checks
// the catalog invariants.
func NewCatalog(modules []Module) (*Catalog, error) {
	if len(modules) == 0 {
		return nil, ErrEmptyCatalog
	}

	ordered := make([]Module, len(modules))
	for i, m := range modules {
		ordered[i] = m.clone()
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	c := &Catalog{
		modules: ordered,
		byID:    make(map[string]int, len(ordered)),
	}
	questionIDs := make(map[string]string)

	for i := range c.modules {
		m := &c.modules[i]
		if i > 0 && m.Position == c.modules[i-1].Position {
			return nil, fmt.Errorf("%w: %s and %s share position %d", ErrInvalidModule, c.modules[i-1].ID, m.ID, m.Position)
		}
		if err := validateModule(*m); err != nil {
			return nil, err
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate module id %q", ErrInvalidModule, m.ID)
		}
		for _, q := range m.Questions {
			if owner, dup := questionIDs[q.ID]; dup {
				return nil, fmt.Errorf("%w: question id %q used by %s and %s", ErrInvalidModule, q.ID, owner, m.ID)
			}
			questionIDs[q.ID] = m.ID
		}
		if m.EstimatedMinutes == 0 {
			m.EstimatedMinutes = DefaultEstimatedMinutes
		}
		m.Ordinal = i
		c.byID[m.ID] = i
	}

	return c, nil
}

func validateModule(m Module) error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidModule)
	}
	if m.Title == "" {
		return fmt.Errorf("%w: %s has no title", ErrInvalidModule, m.ID)
	}
	if m.Theory == "" {
		return fmt.Errorf("%w: %s has no theory", ErrInvalidModule, m.ID)
	}
	if !unlockCodePattern.MatchString(m.UnlockCode) {
		return fmt.Errorf("%w: %s unlock code %q must be an uppercase token", ErrInvalidModule, m.ID, m.UnlockCode)
	}
	if len(m.Questions) == 0 {
		return fmt.Errorf("%w: %s has no questions", ErrInvalidModule, m.ID)
	}
	for _, q := range m.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: %s has a question without id", ErrInvalidModule, m.ID)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %s needs at least two options", ErrInvalidModule, q.ID)
		}
		if !q.HasOption(q.CorrectIndex) {
			return fmt.Errorf("%w: question %s correct index %d out of range", ErrInvalidModule, q.ID, q.CorrectIndex)
		}
	}
	return nil
}

// Len returns the number of modules.
func (c *Catalog) Len() int {
	return len(c.modules)
}

// Modules returns copies of the modules in course order.
func (c *Catalog) Modules() []Module {
	out := make([]Module, len(c.modules))
	for i, m := range c.modules {
		out[i] = m.clone()
	}
	return out
}

// Module returns a module by ID.
func (c *Catalog) Module(id string) (Module, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Module{}, false
	}
	return c.modules[i].clone(), true
}

// At returns the module at the given ordinal.
func (c *Catalog) At(ordinal int) (Module, bool) {
	if ordinal < 0 || ordinal >= len(c.modules) {
		return Module{}, false
	}
	return c.modules[ordinal].clone(), true
}

// IndexOf returns the ordinal of a module, or -1 when the id is unknown.
func (c *Catalog) IndexOf(id string) int {
	i, ok := c.byID[id]
	if !ok {
		return -1
	}
	return i
}

// First returns the opening module of the course.
func (c *Catalog) First() Module {
	return c.modules[0].clone()
}

// Next returns the module following id. ok is false when id is the last
// module or unknown.
func (c *Catalog) Next(id string) (Module, bool) {
	i, found := c.byID[id]
	if !found {
		return Module{}, false
	}
	return c.At(i + 1)
}
