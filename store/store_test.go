package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

type closer interface{ Close() error }

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	bg, err := OpenBadger(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("badger: %v", err)
	}
	out := map[string]Store{"memory": NewMemory(), "sqlite": sq, "badger": bg}
	t.Cleanup(func() {
		for _, s := range out {
			if c, ok := s.(closer); ok {
				c.Close()
			}
		}
	})
	return out
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Load(ctx, "home"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("empty load: got %v, want ErrNotFound", err)
			}
			if err := s.Save(ctx, "home", []byte(`{"v":1}`)); err != nil {
				t.Fatal(err)
			}
			if err := s.Save(ctx, "home", []byte(`{"v":2}`)); err != nil {
				t.Fatal(err)
			}
			if err := s.Save(ctx, "other", []byte(`x`)); err != nil {
				t.Fatal(err)
			}
			got, err := s.Load(ctx, "home")
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != `{"v":2}` {
				t.Errorf("got %q, want overwrite", got)
			}

			if l, ok := s.(Lister); ok {
				slots, err := l.Slots(ctx)
				if err != nil {
					t.Fatal(err)
				}
				if want := []string{"home", "other"}; !reflect.DeepEqual(slots, want) {
					t.Errorf("slots: got %v, want %v", slots, want)
				}
			}

			if err := s.Clear(ctx, "home"); err != nil {
				t.Fatal(err)
			}
			if err := s.Clear(ctx, "home"); err != nil {
				t.Errorf("second clear: %v", err)
			}
			if _, err := s.Load(ctx, "home"); !errors.Is(err, ErrNotFound) {
				t.Errorf("after clear: got %v, want ErrNotFound", err)
			}
			if got, _ := s.Load(ctx, "other"); string(got) != "x" {
				t.Errorf("other slot: got %q", got)
			}
		})
	}
}

func TestMemoryCopiesBlobs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	blob := []byte("abc")
	m.Save(ctx, "s", blob)
	blob[0] = 'z'
	got, _ := m.Load(ctx, "s")
	got[1] = 'z'
	again, _ := m.Load(ctx, "s")
	if string(again) != "abc" {
		t.Errorf("got %q, want abc", again)
	}
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "hotstate.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "p", []byte("blob")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Load(ctx, "p")
	if err != nil || string(got) != "blob" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestBadgerPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := OpenBadger(BadgerConfig{Path: dir, SyncWrites: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Save(ctx, "p", []byte("blob")); err != nil {
		t.Fatal(err)
	}
	b.Close()

	b, err = OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	got, err := b.Load(ctx, "p")
	if err != nil || string(got) != "blob" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestBadgerRequiresPath(t *testing.T) {
	if _, err := OpenBadger(BadgerConfig{}); err == nil {
		t.Error("expected error")
	}
}
