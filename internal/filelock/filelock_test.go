package filelock

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionLockExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()

	first := NewSessionLock(dir, "user-1")
	acquired, err := first.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !acquired {
		t.Fatal("first session could not acquire its own lock")
	}

	second := NewSessionLock(dir, "user-1")
	acquired, err = second.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if acquired {
		t.Error("second session acquired a held lock")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	acquired, err = second.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire after release: %v", err)
	}
	if !acquired {
		t.Error("lock not available after release")
	}
	second.Release()
}

func TestSessionLocksArePerUser(t *testing.T) {
	dir := t.TempDir()

	a := NewSessionLock(dir, "user-a")
	b := NewSessionLock(dir, "user-b")

	if ok, _ := a.TryAcquire(); !ok {
		t.Fatal("user-a lock unavailable")
	}
	defer a.Release()

	ok, err := b.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !ok {
		t.Error("different users must not contend for the same lock")
	}
	b.Release()
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.html")

	if err := AtomicWrite(path, []byte("first")); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("content = %q", data)
	}

	// Overwrite replaces content wholesale.
	if err := AtomicWrite(path, []byte("second")); err != nil {
		t.Fatalf("AtomicWrite overwrite: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content after overwrite = %q", data)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "report.html" {
			t.Errorf("stray file left behind: %s", e.Name())
		}
	}
}

func TestAtomicWriteCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "report.html")

	if err := AtomicWrite(path, []byte("x")); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}
