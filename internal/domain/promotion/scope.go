package promotion

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ScopeKind tells which lines a promotion can discount
type ScopeKind string

const (
	ScopeKindAll        ScopeKind = "all"
	ScopeKindProducts   ScopeKind = "products"
	ScopeKindCategories ScopeKind = "categories"
)

// Scope is resolved once when a promotion is loaded, so callers never inspect raw id lists.
// The zero value matches everything.
type Scope struct {
	kind       ScopeKind
	products   map[uuid.UUID]struct{}
	categories map[string]struct{}
}

// ScopeAll matches every line of the store
func ScopeAll() Scope {
	return Scope{kind: ScopeKindAll}
}

// ScopeProducts matches only the listed products
func ScopeProducts(ids ...uuid.UUID) Scope {
	s := Scope{kind: ScopeKindProducts, products: make(map[uuid.UUID]struct{}, len(ids))}
	for _, id := range ids {
		s.products[id] = struct{}{}
	}
	return s
}

// ScopeCategories matches products in the listed categories, case-insensitively
func ScopeCategories(categories ...string) Scope {
	s := Scope{kind: ScopeKindCategories, categories: make(map[string]struct{}, len(categories))}
	for _, c := range categories {
		s.categories[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return s
}

// Kind returns the scope kind
func (s Scope) Kind() ScopeKind {
	if s.kind == "" {
		return ScopeKindAll
	}
	return s.kind
}

// Matches reports whether a product falls inside the scope
func (s Scope) Matches(productID uuid.UUID, category string) bool {
	switch s.Kind() {
	case ScopeKindProducts:
		_, ok := s.products[productID]
		return ok
	case ScopeKindCategories:
		_, ok := s.categories[strings.ToLower(strings.TrimSpace(category))]
		return ok
	default:
		return true
	}
}

// ProductIDs returns the scoped product ids in a stable order
func (s Scope) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Categories returns the scoped categories sorted
func (s Scope) Categories() []string {
	cats := make([]string, 0, len(s.categories))
	for c := range s.categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}
