// Package typecatalog resolves textual type tags back to Go types.
//
// Go cannot enumerate the types linked into a binary, so types that may reach
// the enrichment stage as untyped trees must be registered up front:
//
//	func init() {
//		typecatalog.Register[Person](typecatalog.Default)
//	}
//
// Resolution by simple name is ambiguous when two packages declare a type of
// the same name; the first registered match wins.
package typecatalog

import (
	"reflect"
	"sync"

	"github.com/isseis/go-log-redactor/internal/sensitivity"
)

// Catalog is an ordered set of registered types. It is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	types    []reflect.Type
	seen     map[reflect.Type]struct{}
	resolved map[string]reflect.Type
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{
		seen:     make(map[reflect.Type]struct{}),
		resolved: make(map[string]reflect.Type),
	}
}

// Default is the process-wide catalog.
var Default = New()

// Register adds types to the catalog in order. Pointer types are registered
// as their element type, and duplicates are ignored.
func (c *Catalog) Register(types ...reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range types {
		t = sensitivity.Indirect(t)
		if t == nil {
			continue
		}
		if _, ok := c.seen[t]; ok {
			continue
		}
		c.seen[t] = struct{}{}
		c.types = append(c.types, t)
	}
}

// Register adds T to c.
func Register[T any](c *Catalog) {
	c.Register(reflect.TypeFor[T]())
}

// Resolve returns the first registered type whose full name
// ("path/to/pkg.Name") or simple name equals tag.
func (c *Catalog) Resolve(tag string) (reflect.Type, bool) {
	if tag == "" {
		return nil, false
	}

	c.mu.RLock()
	t, ok := c.resolved[tag]
	c.mu.RUnlock()
	if ok {
		return t, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t = nil
	for _, candidate := range c.types {
		if FullName(candidate) == tag || candidate.Name() == tag {
			t = candidate
			break
		}
	}
	if t == nil {
		return nil, false
	}
	// Only hits are memoized.
	c.resolved[tag] = t

	return t, true
}

// Len returns the number of registered types.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

// FullName returns "pkgpath.Name" for named types and the plain name otherwise.
func FullName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
