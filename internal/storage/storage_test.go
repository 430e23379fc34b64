package storage

import (
	"context"
	"path/filepath"
	"testing"

	logx "abjad/pkg/logx"
)

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := st.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want ok=false err=nil", ok, err)
	}
	if err := st.Set(ctx, "token", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := st.Set(ctx, "token", "def"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := st.Get(ctx, "token")
	if err != nil || !ok || v != "def" {
		t.Fatalf("Get = %q ok=%v err=%v, want def", v, ok, err)
	}
	if err := st.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := st.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete(missing): %v", err)
	}
	if _, ok, _ := st.Get(ctx, "token"); ok {
		t.Fatalf("expected key removed")
	}
}

func TestMemoryStore(t *testing.T) {
	st := NewMemory()
	exerciseStore(t, st)
	_ = st.Close()
	if err := st.Set(context.Background(), "k", "v"); err != ErrClosed {
		t.Fatalf("Set after close err = %v, want ErrClosed", err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal")
	cfg := Config{Driver: "file", Path: path}

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	exerciseStore(t, st)

	ctx := context.Background()
	_ = st.Set(ctx, "tailor_theme", "light")
	_ = st.Set(ctx, "user", `{"id":1}`)
	_ = st.Delete(ctx, "user")
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	if v, ok, _ := st2.Get(ctx, "tailor_theme"); !ok || v != "light" {
		t.Fatalf("theme after reopen = %q ok=%v", v, ok)
	}
	if _, ok, _ := st2.Get(ctx, "user"); ok {
		t.Fatalf("deleted key resurrected after reopen")
	}
}

func TestFileStoreCompactsJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < compactEvery+3; i++ {
		if err := st.Set(ctx, "counter", string(rune('a'+i%26))); err != nil {
			t.Fatalf("Set #%d: %v", i, err)
		}
	}
	fs := st.(*fileStore)
	fs.mu.Lock()
	info, err := fs.journal.Stat()
	fs.mu.Unlock()
	if err != nil {
		t.Fatalf("stat journal: %v", err)
	}
	// Only the three writes after the compaction remain in the journal.
	if info.Size() == 0 || info.Size() > 200 {
		t.Fatalf("journal size = %d, expected a short tail after compaction", info.Size())
	}
	_ = st.Close()
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	exerciseStore(t, st)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for file driver without path")
	}
}
