package replay

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	store := NewCheckpointStore(path, true)

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("load before save: ok=%t err=%v", ok, err)
	}

	if err := store.Save(42); err != nil {
		t.Fatalf("save: %v", err)
	}
	cp, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%t err=%v", ok, err)
	}
	if cp.LastSeenSeq != 42 {
		t.Fatalf("last seen seq: %d != 42", cp.LastSeenSeq)
	}
	if cp.UpdatedAt == "" {
		t.Fatalf("updated at not set")
	}

	// Saves replace atomically: no tmp file is left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	if err := store.Save(100); err != nil {
		t.Fatalf("second save: %v", err)
	}
	cp, _, err = store.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cp.LastSeenSeq != 100 {
		t.Fatalf("last seen seq after overwrite: %d", cp.LastSeenSeq)
	}
}

func TestCheckpointDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, false)

	if err := store.Save(7); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled store wrote a file: %v", err)
	}
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("disabled load: ok=%t err=%v", ok, err)
	}
}

func TestCheckpointCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store := NewCheckpointStore(path, true)
	if _, _, err := store.Load(); err == nil {
		t.Fatalf("corrupt checkpoint load succeeded")
	}
}
