package batchload

import (
	"context"
	"fmt"
	"time"
)

// Relation describes a one-to-many lookup of an entity by a foreign key.
type Relation[ID comparable, R any] struct {
	Name  string // loader name suffix, e.g. "CustomerID" => "order.byCustomerID"
	Fetch func(ctx context.Context, keys []ID) ([]R, error)
	KeyOf func(R) ID
}

// EntityOptions configure the loader set of one entity.
// Every field in the first group is required.
type EntityOptions[ID comparable, F comparable, R any] struct {
	Entity       string // e.g. "product"
	IDOf         func(R) ID
	FetchByID    func(ctx context.Context, ids []ID) ([]R, error)
	FieldOf      func(R) F
	FetchByField func(ctx context.Context, values []F) ([]R, error)
	Search       func(ctx context.Context, term string) ([]R, error)

	Relations []Relation[ID, R]

	Wait              time.Duration // point and relation loaders
	MaxBatch          int
	SearchWait        time.Duration
	SearchMaxBatch    int
	SearchConcurrency int
}

// Entity is the loader set of one entity inside one scope: a point loader by id,
// a point loader by an alternate unique field, a search loader and one grouping
// loader per relation. Mutation handlers call the Clear*/Prime methods after
// writes so later reads in the same request see fresh data.
type Entity[ID comparable, F comparable, R any] struct {
	name    string
	idOf    func(R) ID
	fieldOf func(R) F

	byID      Loader[ID, R]
	byField   Loader[F, R]
	search    GroupLoader[string, R]
	relations map[string]GroupLoader[ID, R]
	order     []string
}

// NewEntity builds the loader set. scope may be nil for standalone use.
func NewEntity[ID comparable, F comparable, R any](scope *Scope, opts EntityOptions[ID, F, R]) (*Entity[ID, F, R], error) {
	switch {
	case opts.Entity == "":
		return nil, fmt.Errorf("batchload: entity name is required")
	case opts.IDOf == nil || opts.FetchByID == nil:
		return nil, fmt.Errorf("batchload: %s: id func and fetch are required", opts.Entity)
	case opts.FieldOf == nil || opts.FetchByField == nil:
		return nil, fmt.Errorf("batchload: %s: field func and fetch are required", opts.Entity)
	case opts.Search == nil:
		return nil, fmt.Errorf("batchload: %s: search func is required", opts.Entity)
	}

	e := &Entity[ID, F, R]{
		name:      opts.Entity,
		idOf:      opts.IDOf,
		fieldOf:   opts.FieldOf,
		relations: make(map[string]GroupLoader[ID, R], len(opts.Relations)),
	}

	var err error
	e.byID, err = New(Options[ID, R]{
		Name:     opts.Entity + ".byID",
		Fetch:    Keyed(opts.FetchByID, opts.IDOf),
		Scope:    scope,
		Wait:     opts.Wait,
		MaxBatch: opts.MaxBatch,
	})
	if err != nil {
		return nil, err
	}
	e.byField, err = New(Options[F, R]{
		Name:     opts.Entity + ".byField",
		Fetch:    Keyed(opts.FetchByField, opts.FieldOf),
		Scope:    scope,
		Wait:     opts.Wait,
		MaxBatch: opts.MaxBatch,
	})
	if err != nil {
		return nil, err
	}
	e.search, err = NewSearch(SearchOptions[R]{
		Name:        opts.Entity + ".search",
		Search:      opts.Search,
		Scope:       scope,
		Wait:        opts.SearchWait,
		MaxBatch:    opts.SearchMaxBatch,
		Concurrency: opts.SearchConcurrency,
	})
	if err != nil {
		return nil, err
	}

	for _, rel := range opts.Relations {
		if rel.Name == "" {
			return nil, fmt.Errorf("batchload: %s: relation name is required", opts.Entity)
		}
		if _, dup := e.relations[rel.Name]; dup {
			return nil, fmt.Errorf("batchload: %s: duplicate relation %q", opts.Entity, rel.Name)
		}
		g, err := NewGroup(GroupOptions[ID, R]{
			Name:     opts.Entity + ".by" + rel.Name,
			Fetch:    rel.Fetch,
			KeyOf:    rel.KeyOf,
			Scope:    scope,
			Wait:     opts.Wait,
			MaxBatch: opts.MaxBatch,
		})
		if err != nil {
			return nil, err
		}
		e.relations[rel.Name] = g
		e.order = append(e.order, rel.Name)
	}
	return e, nil
}

func (e *Entity[ID, F, R]) Name() string                   { return e.name }
func (e *Entity[ID, F, R]) ByID() Loader[ID, R]            { return e.byID }
func (e *Entity[ID, F, R]) ByField() Loader[F, R]          { return e.byField }
func (e *Entity[ID, F, R]) Search() GroupLoader[string, R] { return e.search }

// Relation returns the grouping loader registered under name.
func (e *Entity[ID, F, R]) Relation(name string) (GroupLoader[ID, R], bool) {
	g, ok := e.relations[name]
	return g, ok
}

// ClearAll drops every cached read of the entity. Use it after inserts and
// deletes, which change which keys exist and what every search or relation returns.
func (e *Entity[ID, F, R]) ClearAll() {
	e.byID.ClearAll()
	e.byField.ClearAll()
	e.search.ClearAll()
	for _, name := range e.order {
		e.relations[name].ClearAll()
	}
}

func (e *Entity[ID, F, R]) ClearByID(id ID)      { e.byID.Clear(id) }
func (e *Entity[ID, F, R]) ClearByField(value F) { e.byField.Clear(value) }

// Prime seeds the id and field loaders with row, e.g. the row returned by an update.
// It reports whether the id loader accepted it.
func (e *Entity[ID, F, R]) Prime(row R) bool {
	ok := e.byID.Prime(e.idOf(row), row)
	e.byField.Prime(e.fieldOf(row), row)
	return ok
}

// Stats returns one entry per loader of the set.
func (e *Entity[ID, F, R]) Stats() []Stats {
	out := []Stats{e.byID.Stats(), e.byField.Stats(), e.search.Stats()}
	for _, name := range e.order {
		out = append(out, e.relations[name].Stats())
	}
	return out
}
