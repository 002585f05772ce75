package permission

import (
	"fmt"
	"sort"
)

// Resolver answers closure queries over the permission dependency graph.
// Ancestor and descendant sets are computed once at construction; a cyclic
// graph is a construction-time error, never a runtime hang.
type Resolver struct {
	known       map[string]bool
	ancestors   map[string][]string
	descendants map[string][]string
	mandatory   map[string]map[string]bool
}

// NewResolver builds a resolver over the package's static graph.
func NewResolver() (*Resolver, error) {
	return newResolver(All, Dependencies, Mandatory)
}

// MustResolver is NewResolver for wiring paths where the static graph has
// already been validated by tests; it panics on a broken graph.
func MustResolver() *Resolver {
	r, err := NewResolver()
	if err != nil {
		panic(err)
	}
	return r
}

func newResolver(all []string, deps map[string][]string, mandatory map[string][]string) (*Resolver, error) {
	r := &Resolver{
		known:       make(map[string]bool, len(all)),
		ancestors:   make(map[string][]string, len(all)),
		descendants: make(map[string][]string, len(all)),
		mandatory:   make(map[string]map[string]bool, len(mandatory)),
	}
	for _, p := range all {
		r.known[p] = true
	}
	for p, parents := range deps {
		if !r.known[p] {
			return nil, fmt.Errorf("dependency entry for unknown permission %q", p)
		}
		for _, parent := range parents {
			if !r.known[parent] {
				return nil, fmt.Errorf("permission %q depends on unknown %q", p, parent)
			}
		}
	}

	// Ancestor closure with explicit cycle detection. The graph is small, so
	// a per-node DFS is fine.
	for _, p := range all {
		anc, err := closure(p, deps)
		if err != nil {
			return nil, err
		}
		r.ancestors[p] = anc
	}

	// Descendants are the inverse relation of the ancestor closure.
	for _, p := range all {
		for _, parent := range r.ancestors[p] {
			r.descendants[parent] = append(r.descendants[parent], p)
		}
	}
	for p := range r.descendants {
		sort.Strings(r.descendants[p])
	}

	for role, perms := range mandatory {
		set := make(map[string]bool, len(perms))
		for _, p := range perms {
			if !r.known[p] {
				return nil, fmt.Errorf("mandatory permission %q for role %q is unknown", p, role)
			}
			set[p] = true
		}
		r.mandatory[role] = set
	}
	return r, nil
}

// closure walks the dependency edges from p to a fixpoint, failing on cycles.
func closure(p string, deps map[string][]string) ([]string, error) {
	var out []string
	seen := map[string]bool{p: true}
	onPath := map[string]bool{p: true}

	var walk func(node string) error
	walk = func(node string) error {
		for _, parent := range deps[node] {
			if onPath[parent] {
				return fmt.Errorf("permission dependency cycle through %q and %q", node, parent)
			}
			if seen[parent] {
				continue
			}
			seen[parent] = true
			onPath[parent] = true
			out = append(out, parent)
			if err := walk(parent); err != nil {
				return err
			}
			onPath[parent] = false
		}
		return nil
	}
	if err := walk(p); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Ancestors returns every permission transitively required by p.
func (r *Resolver) Ancestors(p string) []string {
	return append([]string(nil), r.ancestors[p]...)
}

// Descendants returns every permission whose dependency list, directly or
// transitively, includes p.
func (r *Resolver) Descendants(p string) []string {
	return append([]string(nil), r.descendants[p]...)
}

// IsMandatory reports whether p can never be revoked from role.
func (r *Resolver) IsMandatory(role, p string) bool {
	return r.mandatory[role][p]
}

// Grant returns current with p and its ancestor closure added.
func (r *Resolver) Grant(current []string, p string) []string {
	set := toSet(current)
	set[p] = true
	for _, a := range r.ancestors[p] {
		set[a] = true
	}
	return fromSet(set)
}

// Revoke returns current with p and its descendant closure removed, skipping
// entries that are mandatory for role.
func (r *Resolver) Revoke(current []string, p, role string) []string {
	set := toSet(current)
	for _, d := range append([]string{p}, r.descendants[p]...) {
		if r.IsMandatory(role, d) {
			continue
		}
		delete(set, d)
	}
	return fromSet(set)
}

// GroupToggle flips a group: if every member is held, revoke them all
// (mandatory entries excepted); otherwise grant them all. Closures apply per
// member either way.
func (r *Resolver) GroupToggle(current []string, group []string, role string) []string {
	set := toSet(current)
	allGranted := true
	for _, p := range group {
		if !set[p] {
			allGranted = false
			break
		}
	}

	out := append([]string(nil), current...)
	if allGranted {
		for _, p := range group {
			out = r.Revoke(out, p, role)
		}
	} else {
		for _, p := range group {
			out = r.Grant(out, p)
		}
	}
	return out
}

// SelectAll returns every known permission key.
func (r *Resolver) SelectAll() []string {
	out := make([]string, 0, len(r.known))
	for p := range r.known {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DeselectAll returns exactly the mandatory set for role.
func (r *Resolver) DeselectAll(role string) []string {
	out := make([]string, 0, len(r.mandatory[role]))
	for p := range r.mandatory[role] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DefaultsFor returns the closed default permission set for a role.
func (r *Resolver) DefaultsFor(role string) []string {
	var out []string
	for _, p := range Defaults[role] {
		out = r.Grant(out, p)
	}
	for _, p := range Mandatory[role] {
		out = r.Grant(out, p)
	}
	return out
}

func toSet(perms []string) map[string]bool {
	set := make(map[string]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}

func fromSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
