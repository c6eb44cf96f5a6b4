package store

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/blockberries/founders/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLatestOnEmptyStore(t *testing.T) {
	s := openTestStore(t)

	_, _, _, ok, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false on empty store")
	}
}

func TestSaveAndLatest(t *testing.T) {
	s := openTestStore(t)

	hash := types.AppHash{1, 2, 3}
	state := []byte(`{"height":7,"balances":{"a":100}}`)
	if err := s.Save(7, hash, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	height, gotHash, gotState, ok, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !ok {
		t.Fatal("expected a record")
	}
	if height != 7 {
		t.Errorf("height = %d, want 7", height)
	}
	if gotHash != hash {
		t.Errorf("app hash mismatch")
	}
	if !bytes.Equal(gotState, state) {
		t.Errorf("state = %q, want %q", gotState, state)
	}
}

func TestLatestReturnsHighestHeight(t *testing.T) {
	s := openTestStore(t)

	for h := uint64(1); h <= 5; h++ {
		if err := s.Save(h, types.AppHash{byte(h)}, []byte{byte(h)}); err != nil {
			t.Fatalf("Save(%d): %v", h, err)
		}
	}

	height, _, state, ok, err := s.Latest()
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if height != 5 || !bytes.Equal(state, []byte{5}) {
		t.Errorf("got height %d state %v, want height 5 state [5]", height, state)
	}
}

func TestSaveSameHeightReplaces(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save(3, types.AppHash{1}, []byte("first")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(3, types.AppHash{2}, []byte("second")); err != nil {
		t.Fatalf("re-Save: %v", err)
	}

	height, hash, state, ok, err := s.Latest()
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if height != 3 || hash != (types.AppHash{2}) || !bytes.Equal(state, []byte("second")) {
		t.Errorf("replacement not applied: height=%d state=%q", height, state)
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)

	for h := uint64(1); h <= 10; h++ {
		if err := s.Save(h, types.AppHash{byte(h)}, []byte{byte(h)}); err != nil {
			t.Fatalf("Save(%d): %v", h, err)
		}
	}
	if err := s.Prune(8); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	// Latest is untouched by pruning.
	height, _, _, ok, err := s.Latest()
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if height != 10 {
		t.Errorf("height = %d, want 10", height)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM committed_state`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("rows after prune = %d, want 3 (heights 8..10)", n)
	}
}

func TestReopenRecoversState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(42, types.AppHash{9}, []byte("durable")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	height, _, state, ok, err := s2.Latest()
	if err != nil || !ok {
		t.Fatalf("Latest after reopen: ok=%v err=%v", ok, err)
	}
	if height != 42 || !bytes.Equal(state, []byte("durable")) {
		t.Errorf("got height %d state %q", height, state)
	}
}
