package txn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// TestRollbackRestoresPreviousContent verifies that a failed transaction
// restores an overwritten file to its exact pre-transaction bytes.
func TestRollbackRestoresPreviousContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hook")
	if err := os.WriteFile(path, []byte("original\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := Run("install", func(tx *Tx) error {
		if err := tx.AtomicWrite(path, []byte("replacement\n"), 0o755); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error from failed transaction")
	}

	if got := readFile(t, path); got != "original\n" {
		t.Errorf("file not restored: %q", got)
	}

	// Snapshot files must not linger after rollback.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the restored file, found %d entries", len(entries))
	}
}

// TestRollbackRemovesNewFiles verifies that files created inside a failed
// transaction are deleted on rollback.
func TestRollbackRemovesNewFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fresh")

	err := Run("install", func(tx *Tx) error {
		if err := tx.AtomicWrite(path, []byte("new\n"), 0o644); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("new file should be removed on rollback, stat err: %v", statErr)
	}
}

// TestPartialFailureRestoresAllPriorWrites covers a multi-file install:
// N successful writes followed by a failure must restore all N files.
func TestPartialFailureRestoresAllPriorWrites(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a")
	if err := os.WriteFile(existing, []byte("a-v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	fresh := filepath.Join(dir, "b")

	var tx *Tx
	err := Run("install", func(open *Tx) error {
		tx = open
		if err := open.AtomicWrite(existing, []byte("a-v2"), 0o644); err != nil {
			return err
		}
		if err := open.AtomicWrite(fresh, []byte("b-v1"), 0o644); err != nil {
			return err
		}
		return fmt.Errorf("write c: %w", os.ErrPermission)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if tx.Committed() {
		t.Error("failed transaction reported committed")
	}

	if got := readFile(t, existing); got != "a-v1" {
		t.Errorf("pre-existing file = %q, expected a-v1", got)
	}
	if _, statErr := os.Stat(fresh); !os.IsNotExist(statErr) {
		t.Error("fresh file should be removed")
	}
}

// TestCommitKeepsChangesAndClearsLog verifies a committed transaction leaves
// the new content in place and never replays the log.
func TestCommitKeepsChangesAndClearsLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	var tx *Tx
	err := Run("install", func(open *Tx) error {
		tx = open
		return open.AtomicWrite(path, []byte("new"), 0o644)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	if !tx.Committed() {
		t.Error("transaction did not report committed after a clean run")
	}
	if got := readFile(t, path); got != "new" {
		t.Errorf("file = %q, expected new", got)
	}

	// Snapshots are cleaned up on commit.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".txn-") {
			t.Errorf("snapshot %s left behind after commit", e.Name())
		}
	}
}

// TestRollbackRunsInReverseOrder verifies strict LIFO replay.
func TestRollbackRunsInReverseOrder(t *testing.T) {
	tx := Begin("order")
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		tx.AddRollback(fmt.Sprintf("step-%d", i), func() error {
			order = append(order, i)
			return nil
		})
	}
	tx.Rollback()

	want := []int{2, 1, 0}
	for i, v := range want {
		if order[i] != v {
			t.Fatalf("rollback order = %v, expected %v", order, want)
		}
	}
}

// TestRollbackToleratesActionFailures verifies that one failing inverse
// action does not stop the remaining actions from running.
func TestRollbackToleratesActionFailures(t *testing.T) {
	tx := Begin("tolerant")
	ran := make([]bool, 3)
	tx.AddRollback("first", func() error { ran[0] = true; return nil })
	tx.AddRollback("second", func() error { ran[1] = true; return errors.New("cannot restore") })
	tx.AddRollback("third", func() error { ran[2] = true; return nil })
	tx.Rollback()

	for i, r := range ran {
		if !r {
			t.Errorf("action %d did not run", i)
		}
	}
}

// TestAtomicMoveRollback verifies the move inverse returns the file to its
// source and restores a clobbered destination.
func TestAtomicMoveRollback(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	if err := os.WriteFile(src, []byte("moving"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("clobbered"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := Run("move", func(tx *Tx) error {
		if err := tx.AtomicMove(src, dst); err != nil {
			return err
		}
		return errors.New("later step failed")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if got := readFile(t, src); got != "moving" {
		t.Errorf("src = %q, expected moving", got)
	}
	if got := readFile(t, dst); got != "clobbered" {
		t.Errorf("dst = %q, expected clobbered", got)
	}
}

// TestRunRecoversPanicsAfterRollback verifies a panic inside the transaction
// still triggers rollback before propagating.
func TestRunRecoversPanicsAfterRollback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("panic should propagate")
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Error("file should be rolled back before panic propagates")
		}
	}()

	_ = Run("panicky", func(tx *Tx) error {
		if err := tx.AtomicWrite(path, []byte("x"), 0o644); err != nil {
			return err
		}
		panic("mid-transaction crash")
	})
}
