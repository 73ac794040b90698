package health

import (
	"context"
	"sort"
)

// Group is an immutable, named set of checkers assembled together.
type Group struct {
	name   string
	checks map[string]Checker
}

// NewGroup copies checks into a new group. Nil checkers are dropped.
func NewGroup(name string, checks map[string]Checker) *Group {
	copied := make(map[string]Checker, len(checks))
	for k, c := range checks {
		if c != nil {
			copied[k] = c
		}
	}
	return &Group{name: name, checks: copied}
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// Names returns the check names in sorted order.
func (g *Group) Names() []string {
	names := make([]string, 0, len(g.checks))
	for name := range g.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the checker registered under name.
func (g *Group) Get(name string) (Checker, bool) {
	c, ok := g.checks[name]
	return c, ok
}

// Checks returns a copy of the name to checker mapping.
func (g *Group) Checks() map[string]Checker {
	out := make(map[string]Checker, len(g.checks))
	for k, c := range g.checks {
		out[k] = c
	}
	return out
}

// Len returns the number of checks in the group.
func (g *Group) Len() int {
	return len(g.checks)
}

// CheckAll runs every check sequentially. A failing or panicking check
// only affects its own entry.
func (g *Group) CheckAll(ctx context.Context) map[string]Result {
	results := make(map[string]Result, len(g.checks))
	for name, c := range g.checks {
		results[name] = safeCheck(ctx, c)
	}
	return results
}
