// Package schema validates and orders the migration graph of the SGICS
// database and applies it.
//
// Every migration belongs to an app (a schema namespace such as "pagos") and
// declares the migrations it depends on, possibly in other apps. Before
// anything touches a database the whole set is checked: identifiers must be
// unique per app, dependencies must exist, the relation must be acyclic, and
// every app must end in exactly one leaf. Forks are collapsed by authoring a
// Merge migration, never by editing history.
package schema

import (
	"fmt"
	"strings"
)

// Key identifies a migration: the app namespace plus the migration name.
type Key struct {
	App  string
	Name string
}

func (k Key) String() string {
	return k.App + "/" + k.Name
}

// ParseKey parses "app/name".
func ParseKey(s string) (Key, error) {
	app, name, ok := strings.Cut(s, "/")
	if !ok || app == "" || name == "" {
		return Key{}, fmt.Errorf("invalid migration key %q, want app/name", s)
	}
	return Key{App: app, Name: name}, nil
}

func less(a, b Key) bool {
	if a.App != b.App {
		return a.App < b.App
	}
	return a.Name < b.Name
}

// Kind tags what a migration node is for.
type Kind int

const (
	// KindSchema changes the schema and carries at least one operation.
	KindSchema Kind = iota
	// KindMerge carries no operations and depends on two or more leaves of
	// its own app, collapsing a fork.
	KindMerge
	// KindPlaceholder carries no operations; it exists so that a dependency
	// referenced before its content was authored resolves.
	KindPlaceholder
	// KindDeferred carries no operations and records, in Note, a destructive
	// change that an operator must author and apply in a later migration.
	KindDeferred
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindMerge:
		return "merge"
	case KindPlaceholder:
		return "placeholder"
	case KindDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Operation is one SQL statement run when a migration is applied.
type Operation struct {
	Description string
	SQL         string
}

// Migration is an immutable, authored schema-change unit.
type Migration struct {
	App          string
	Name         string
	Kind         Kind
	Dependencies []Key
	Operations   []Operation
	Note         string
}

func (m Migration) Key() Key {
	return Key{App: m.App, Name: m.Name}
}

// Dep is shorthand for a dependency key.
func Dep(app, name string) Key {
	return Key{App: app, Name: name}
}

// NewSchema builds a KindSchema migration.
func NewSchema(app, name string, deps []Key, ops ...Operation) Migration {
	return Migration{App: app, Name: name, Kind: KindSchema, Dependencies: deps, Operations: ops}
}

// NewMerge builds a KindMerge migration over the given leaves.
func NewMerge(app, name string, deps ...Key) Migration {
	return Migration{App: app, Name: name, Kind: KindMerge, Dependencies: deps}
}

// NewPlaceholder builds a KindPlaceholder migration.
func NewPlaceholder(app, name, note string, deps ...Key) Migration {
	return Migration{App: app, Name: name, Kind: KindPlaceholder, Dependencies: deps, Note: note}
}

// NewDeferred builds a KindDeferred migration; note names the postponed change.
func NewDeferred(app, name, note string, deps ...Key) Migration {
	return Migration{App: app, Name: name, Kind: KindDeferred, Dependencies: deps, Note: note}
}

// validate checks the shape of a single node against its kind.
func (m Migration) validate() error {
	if m.App == "" || m.Name == "" {
		return fmt.Errorf("%w: migration %q has an empty app or name", ErrInvalidNode, m.Key())
	}
	if strings.Contains(m.App, "/") || strings.Contains(m.Name, "/") {
		return fmt.Errorf("%w: %s: app and name must not contain '/'", ErrInvalidNode, m.Key())
	}

	switch m.Kind {
	case KindSchema:
		if len(m.Operations) == 0 {
			return fmt.Errorf("%w: %s: schema migration without operations", ErrInvalidNode, m.Key())
		}
		for i, op := range m.Operations {
			if strings.TrimSpace(op.SQL) == "" {
				return fmt.Errorf("%w: %s: operation %d has no SQL", ErrInvalidNode, m.Key(), i)
			}
		}
	case KindMerge:
		if len(m.Operations) > 0 {
			return fmt.Errorf("%w: %s: merge migration must not carry operations", ErrInvalidNode, m.Key())
		}
		sameApp := 0
		for _, d := range m.Dependencies {
			if d.App == m.App {
				sameApp++
			}
		}
		if sameApp < 2 {
			return fmt.Errorf("%w: %s: merge migration needs at least two dependencies in app %q", ErrInvalidNode, m.Key(), m.App)
		}
	case KindPlaceholder:
		if len(m.Operations) > 0 {
			return fmt.Errorf("%w: %s: placeholder migration must not carry operations", ErrInvalidNode, m.Key())
		}
	case KindDeferred:
		if len(m.Operations) > 0 {
			return fmt.Errorf("%w: %s: deferred migration must not carry operations", ErrInvalidNode, m.Key())
		}
		if strings.TrimSpace(m.Note) == "" {
			return fmt.Errorf("%w: %s: deferred migration must name the postponed change", ErrInvalidNode, m.Key())
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %d", ErrInvalidNode, m.Key(), int(m.Kind))
	}
	return nil
}
