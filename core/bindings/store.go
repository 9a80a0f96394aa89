// Package bindings implements the scope-stacked, multi-space store that holds
// everything an evml script names: user variables, resolved addresses,
// contract ABIs, loaded modules, module aliases, memoised lookups and
// miscellaneous interpreter state.
//
// Scopes form a parent chain. A read walks from the current scope towards the
// root and stops at the first hit. Writes always land in the current scope, so
// a nested block can shadow an outer binding but never mutate it. The cache
// space is the exception: it lives outside the scope chain in a bounded ARC
// cache and survives scope exits until it is flushed.
package bindings

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/invariant"
)

// Space is a disjoint namespace inside the store.
type Space int

const (
	User   Space = iota // $variables
	Addr                // resolved addresses
	ABI                 // contract interfaces keyed by address
	Module              // loaded module instances keyed by module name
	Alias               // alias -> module name
	Cache               // memoised lookups, scope independent
	Other               // miscellaneous interpreter state
)

var spaceNames = [...]string{"USER", "ADDR", "ABI", "MODULE", "ALIAS", "CACHE", "OTHER"}

func (s Space) String() string {
	if int(s) < len(spaceNames) {
		return spaceNames[s]
	}
	return fmt.Sprintf("Space(%d)", int(s))
}

// scopedSpaces lists every space stored in the scope chain.
var scopedSpaces = []Space{User, Addr, ABI, Module, Alias, Other}

// DefaultCacheSize bounds the cache space.
const DefaultCacheSize = 1024

// Binding is one (space, identifier, value) entry. Mutable reports whether a
// plain write may replace it in its own scope; USER variables need an
// override.
type Binding struct {
	Space      Space
	Identifier string
	Value      any
	Mutable    bool
}

func newBinding(space Space, id string, value any) Binding {
	return Binding{Space: space, Identifier: id, Value: value, Mutable: space != User}
}

type key struct {
	space Space
	id    string
}

type scope struct {
	label    string
	parent   *scope
	depth    int
	bindings map[key]any
	order    []key // insertion order, for deterministic listing
}

// Store is a scope-stacked bindings store. It is safe for concurrent readers;
// writers are expected to be the single owner of the current scope.
type Store struct {
	mu      sync.RWMutex
	root    *scope
	current *scope
	cache   *lru.ARCCache
}

// New creates a store with a root ("program") scope and a cache space of
// DefaultCacheSize entries.
func New() *Store {
	return NewWithCacheSize(DefaultCacheSize)
}

// NewWithCacheSize creates a store whose cache space holds at most size entries.
func NewWithCacheSize(size int) *Store {
	invariant.Precondition(size > 0, "cache size must be positive, got %d", size)
	cache, err := lru.NewARC(size)
	invariant.ExpectNoError(err, "cache creation")

	root := newScope("program", nil)
	return &Store{root: root, current: root, cache: cache}
}

func newScope(label string, parent *scope) *scope {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	return &scope{label: label, parent: parent, depth: depth, bindings: make(map[key]any)}
}

// EnterScope pushes a new child scope and makes it current.
func (s *Store) EnterScope(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = newScope(label, s.current)
}

// ExitScope discards the current scope and its bindings.
func (s *Store) ExitScope() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.parent == nil {
		return fmt.Errorf("cannot exit the program scope")
	}
	s.current = s.current.parent
	return nil
}

// ScopeLabel returns the label of the current scope.
func (s *Store) ScopeLabel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.label
}

// Depth returns the nesting depth of the current scope (0 for the program scope).
func (s *Store) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.depth
}

// SetBinding writes id into space in the current scope. A USER variable that
// is already defined in the current scope is rejected unless override is set;
// shadowing a variable of an enclosing scope is always allowed. Cache-space
// writes go to the scope-independent cache.
func (s *Store) SetBinding(id string, value any, space Space, override bool) error {
	if space == Cache {
		s.cache.Add(id, value)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{space, id}
	if _, exists := s.current.bindings[k]; exists {
		if space == User && !override {
			return fmt.Errorf("%w: %s", errors.ErrAlreadyDefined, id)
		}
	} else {
		s.current.order = append(s.current.order, k)
	}
	s.current.bindings[k] = value
	return nil
}

// SetBindings writes every binding with override semantics. Used to commit
// speculative results in one step.
func (s *Store) SetBindings(bs []Binding) {
	for _, b := range bs {
		err := s.SetBinding(b.Identifier, b.Value, b.Space, true)
		invariant.ExpectNoError(err, "override write")
	}
}

// GetBindingValue returns the innermost value bound to id in space.
func (s *Store) GetBindingValue(id string, space Space) (any, bool) {
	if space == Cache {
		return s.cache.Get(id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	k := key{space, id}
	for sc := s.current; sc != nil; sc = sc.parent {
		if v, ok := sc.bindings[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// HasBinding reports whether id is bound in space anywhere in the scope chain.
func (s *Store) HasBinding(id string, space Space) bool {
	_, ok := s.GetBindingValue(id, space)
	return ok
}

// IsDefinedInCurrentScope reports whether id is bound in space in the current
// scope itself, ignoring enclosing scopes.
func (s *Store) IsDefinedInCurrentScope(id string, space Space) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.current.bindings[key{space, id}]
	return ok
}

// Lookup searches spaces in priority order and returns the first hit. Each
// space is searched through the whole scope chain before the next space.
func (s *Store) Lookup(id string, spaces ...Space) (Binding, bool) {
	for _, sp := range spaces {
		if v, ok := s.GetBindingValue(id, sp); ok {
			return newBinding(sp, id, v), true
		}
	}
	return Binding{}, false
}

// Filter selects bindings for AllBindings.
type Filter struct {
	Spaces       []Space // empty selects every scoped space
	CurrentScope bool    // only bindings of the current scope
	Prefix       string  // identifier prefix
}

// AllBindings returns the bindings visible from the current scope (inner
// definitions shadow outer ones), sorted by space then identifier. Cache-space
// entries are included only when Cache is listed explicitly.
func (s *Store) AllBindings(f Filter) []Binding {
	spaces := f.Spaces
	if len(spaces) == 0 {
		spaces = scopedSpaces
	}
	wanted := make(map[Space]bool, len(spaces))
	for _, sp := range spaces {
		wanted[sp] = true
	}

	var out []Binding
	seen := make(map[key]bool)

	s.mu.RLock()
	for sc := s.current; sc != nil; sc = sc.parent {
		for _, k := range sc.order {
			if !wanted[k.space] || seen[k] || !strings.HasPrefix(k.id, f.Prefix) {
				continue
			}
			seen[k] = true
			out = append(out, newBinding(k.space, k.id, sc.bindings[k]))
		}
		if f.CurrentScope {
			break
		}
	}
	s.mu.RUnlock()

	if wanted[Cache] {
		for _, k := range s.cache.Keys() {
			id, ok := k.(string)
			if !ok || !strings.HasPrefix(id, f.Prefix) {
				continue
			}
			if v, ok := s.cache.Peek(id); ok {
				out = append(out, newBinding(Cache, id, v))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Space != out[j].Space {
			return out[i].Space < out[j].Space
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

// FlushCache empties the cache space.
func (s *Store) FlushCache() {
	s.cache.Purge()
}

// Snapshot returns a new store whose program scope holds every binding
// visible from the current scope of s. The cache space is shared so that
// memoised lookups survive across snapshots.
func (s *Store) Snapshot() *Store {
	snap := &Store{root: newScope("snapshot", nil), cache: s.cache}
	snap.current = snap.root
	snap.SetBindings(s.AllBindings(Filter{}))
	return snap
}

// DebugString renders the scope chain from the current scope to the root.
func (s *Store) DebugString() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for sc := s.current; sc != nil; sc = sc.parent {
		prefix := strings.Repeat("  ", sc.depth)
		fmt.Fprintf(&b, "%s%s (depth=%d)\n", prefix, sc.label, sc.depth)
		for _, k := range sc.order {
			fmt.Fprintf(&b, "%s  %s %s = %v\n", prefix, k.space, k.id, sc.bindings[k])
		}
	}
	return b.String()
}
