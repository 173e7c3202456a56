package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mapStore struct {
	m    map[string][]byte
	gets int
	err  error
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.gets++
	if s.err != nil {
		return nil, false, s.err
	}
	b, ok := s.m[key]
	return b, ok, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	s.m[key] = value
	return true, nil
}

func (s *mapStore) Del(_ context.Context, key string) error {
	delete(s.m, key)
	return nil
}

func (s *mapStore) Close(context.Context) error { return nil }

type multiStore struct {
	mapStore
	multi int
}

func (s *multiStore) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	s.multi++
	out := map[string][]byte{}
	for _, k := range keys {
		if b, ok := s.m[k]; ok {
			out[k] = b
		}
	}
	return out, nil
}

func TestGetManyFallsBackToGet(t *testing.T) {
	s := &mapStore{m: map[string][]byte{"a": []byte("1"), "c": []byte("3")}}
	got, err := GetMany(context.Background(), s, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["c"]) != "3" {
		t.Fatalf("got=%v", got)
	}
	if s.gets != 3 {
		t.Fatalf("gets=%d want 3", s.gets)
	}
}

func TestGetManyPrefersMultiGetter(t *testing.T) {
	s := &multiStore{mapStore: mapStore{m: map[string][]byte{"a": []byte("1")}}}
	got, err := GetMany(context.Background(), s, []string{"a", "b"})
	if err != nil || len(got) != 1 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if s.multi != 1 || s.gets != 0 {
		t.Fatalf("multi=%d gets=%d", s.multi, s.gets)
	}
}

func TestGetManyStopsOnError(t *testing.T) {
	down := errors.New("store down")
	s := &mapStore{m: map[string][]byte{}, err: down}
	if _, err := GetMany(context.Background(), s, []string{"a", "b"}); !errors.Is(err, down) {
		t.Fatalf("err=%v", err)
	}
	if s.gets != 1 {
		t.Fatalf("gets=%d want 1", s.gets)
	}
}
