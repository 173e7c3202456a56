package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestProviderStoresBytes(t *testing.T) {
	p, err := New(Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	defer p.Close(ctx)

	if ok, err := p.Set(ctx, "product:1", []byte(`{"id":1}`), 0, time.Minute); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	p.Wait()

	b, ok, err := p.Get(ctx, "product:1")
	if err != nil || !ok || string(b) != `{"id":1}` {
		t.Fatalf("Get: %q %v %v", b, ok, err)
	}
	if _, ok, _ := p.Get(ctx, "product:2"); ok {
		t.Fatalf("unexpected hit")
	}

	_ = p.Del(ctx, "product:1")
	if _, ok, _ := p.Get(ctx, "product:1"); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("zero config should fail")
	}
}
