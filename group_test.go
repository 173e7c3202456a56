package batchload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type order struct {
	ID         int
	CustomerID int
}

type orderStore struct {
	mu    sync.Mutex
	calls int
	rows  []order
	err   error
}

func (s *orderStore) byCustomer(_ context.Context, ids []int) ([]order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []order
	for _, o := range s.rows {
		if want[o.CustomerID] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *orderStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newOrderLoader(t *testing.T, s *orderStore) GroupLoader[int, order] {
	t.Helper()
	g, err := NewGroup(GroupOptions[int, order]{
		Name:  "order.byCustomerID",
		Fetch: s.byCustomer,
		KeyOf: func(o order) int { return o.CustomerID },
		Wait:  time.Hour,
	})
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

func TestGroupKeepsRowOrderAndEmptySlices(t *testing.T) {
	s := &orderStore{rows: []order{
		{ID: 3, CustomerID: 1},
		{ID: 1, CustomerID: 2},
		{ID: 2, CustomerID: 1},
		{ID: 9, CustomerID: 99}, // never requested
	}}
	g := newOrderLoader(t, s)

	c1, c2, c3 := g.LoadThunk(1), g.LoadThunk(2), g.LoadThunk(3)
	g.Flush()

	rows, err := c1()
	if err != nil {
		t.Fatalf("c1: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != 3 || rows[1].ID != 2 {
		t.Fatalf("customer 1 rows=%v want query order [3 2]", rows)
	}
	if rows, _ := c2(); len(rows) != 1 || rows[0].ID != 1 {
		t.Fatalf("customer 2 rows=%v", rows)
	}
	rows, err = c3()
	if err != nil || rows == nil || len(rows) != 0 {
		t.Fatalf("customer 3 rows=%#v err=%v want empty non-nil slice", rows, err)
	}
	if c := s.callCount(); c != 1 {
		t.Fatalf("fetch calls=%d want 1", c)
	}
}

func TestGroupLoadManyFillsEveryKey(t *testing.T) {
	s := &orderStore{rows: []order{{ID: 1, CustomerID: 1}}}
	g, err := NewGroup(GroupOptions[int, order]{
		Name:  "order.byCustomerID",
		Fetch: s.byCustomer,
		KeyOf: func(o order) int { return o.CustomerID },
		Wait:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	defer g.Close()

	got, err := g.LoadMany(context.Background(), []int{1, 5})
	if err != nil {
		t.Fatalf("LoadMany: %v", err)
	}
	if len(got[1]) != 1 || got[5] == nil || len(got[5]) != 0 {
		t.Fatalf("got=%#v", got)
	}
}

func TestGroupPrimeAndClear(t *testing.T) {
	s := &orderStore{rows: []order{{ID: 1, CustomerID: 1}}}
	g := newOrderLoader(t, s)

	if !g.Prime(7, nil) {
		t.Fatalf("Prime should succeed on an empty key")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rows, err := g.Load(ctx, 7)
	if err != nil || rows == nil || len(rows) != 0 {
		t.Fatalf("primed nil rows should load as an empty slice, got=%#v err=%v", rows, err)
	}

	th := g.LoadThunk(1)
	g.Flush()
	if rows, _ := th(); len(rows) != 1 {
		t.Fatalf("rows=%v", rows)
	}
	g.Clear(1)
	th = g.LoadThunk(1)
	g.Flush()
	if _, err := th(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if c := s.callCount(); c != 2 {
		t.Fatalf("fetch calls=%d want 2", c)
	}
}

func TestGroupErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	g := newOrderLoader(t, &orderStore{err: boom})

	th := g.LoadThunk(1)
	g.Flush()
	rows, err := th()
	if !errors.Is(err, boom) || rows != nil {
		t.Fatalf("rows=%v err=%v", rows, err)
	}
}

func TestNewGroupRequiresKeyFunc(t *testing.T) {
	_, err := NewGroup(GroupOptions[int, order]{
		Name:  "order.byCustomerID",
		Fetch: (&orderStore{}).byCustomer,
	})
	if err == nil {
		t.Fatalf("missing KeyOf should fail")
	}
}
