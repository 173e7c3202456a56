package kv

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/unkn0wn-root/batchload"
	"github.com/unkn0wn-root/batchload/codec"
	"github.com/unkn0wn-root/batchload/provider/ristretto"
)

type category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func newSource(t *testing.T) (*Source[int, category], *ristretto.Provider) {
	t.Helper()
	p, err := ristretto.New(ristretto.Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	if err != nil {
		t.Fatalf("ristretto: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	s, err := New(Options[int, category]{
		Provider: p,
		Codec:    codec.JSON[category]{},
		Key:      func(id int) string { return "category:" + strconv.Itoa(id) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, p
}

func TestFetchThroughLoader(t *testing.T) {
	s, p := newSource(t)
	ctx := context.Background()
	for _, c := range []category{{1, "fruit"}, {2, "dairy"}} {
		if err := s.Put(ctx, c.ID, c); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	p.Wait()

	l, err := batchload.New(batchload.Options[int, category]{Name: "category.byID", Fetch: s.Fetch, Wait: time.Hour})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	defer l.Close()

	t1, t2, t3 := l.LoadThunk(1), l.LoadThunk(2), l.LoadThunk(3)
	l.Flush()
	if v, ok, err := t1(); err != nil || !ok || v.Name != "fruit" {
		t.Fatalf("1: %+v %v %v", v, ok, err)
	}
	if v, ok, _ := t2(); !ok || v.Name != "dairy" {
		t.Fatalf("2: %+v", v)
	}
	if _, ok, err := t3(); ok || err != nil {
		t.Fatalf("3 should be not found: ok=%v err=%v", ok, err)
	}
}

func TestCorruptPayloadFailsOnlyItsKey(t *testing.T) {
	s, p := newSource(t)
	ctx := context.Background()
	if err := s.Put(ctx, 1, category{1, "fruit"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := p.Set(ctx, "category:2", []byte("{not json"), 0, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	p.Wait()

	got, err := s.Fetch(ctx, []int{1, 2})
	var ke batchload.KeyErrors[int]
	if !errors.As(err, &ke) || len(ke) != 1 || ke[2] == nil {
		t.Fatalf("err=%v want KeyErrors for key 2", err)
	}
	if got[1].Name != "fruit" {
		t.Fatalf("key 1 should decode: %v", got)
	}
}

func TestDeleteMakesKeyMissing(t *testing.T) {
	s, p := newSource(t)
	ctx := context.Background()
	_ = s.Put(ctx, 4, category{4, "bakery"})
	p.Wait()
	if err := s.Delete(ctx, 4); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.Fetch(ctx, []int{4})
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options[int, category]{}); err == nil {
		t.Fatalf("empty options should fail")
	}
}
