// Package txn wraps install-time filesystem mutations in an ordered rollback
// log. Every forward mutation registers its inverse action before taking
// effect, so an interrupted or failed transaction can always be replayed in
// reverse to the exact pre-transaction state.
package txn

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// Action is a single inverse operation recorded in the rollback log.
type Action struct {
	// Desc names the action for rollback reporting, e.g. "restore .git/hooks/pre-push".
	Desc string
	Run  func() error
}

// Tx is an open transaction: an ordered rollback log plus a committed flag.
// Not safe for concurrent mutation except via the signal path, which is
// serialized by the internal mutex.
type Tx struct {
	name      string
	mu        sync.Mutex
	rollbacks []Action
	cleanups  []func() error
	committed bool
	verbose   func(format string, args ...any)
}

// Begin opens a transaction with an empty rollback log.
func Begin(name string) *Tx {
	return &Tx{name: name, verbose: func(string, ...any) {}}
}

// SetVerbose installs a printf-style sink for rollback progress reporting.
func (t *Tx) SetVerbose(fn func(format string, args ...any)) {
	if fn != nil {
		t.verbose = fn
	}
}

// AddRollback pushes one inverse action onto the rollback log.
// Callers must register the inverse before performing the forward mutation.
func (t *Tx) AddRollback(desc string, fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollbacks = append(t.rollbacks, Action{Desc: desc, Run: fn})
}

// addCleanup schedules best-effort work for commit time, e.g. removing
// snapshot files that are only needed while the transaction is open.
func (t *Tx) addCleanup(fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanups = append(t.cleanups, fn)
}

// Commit clears the rollback log without executing it and removes any
// snapshot files the transaction created.
func (t *Tx) Commit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	t.rollbacks = nil
	for _, fn := range t.cleanups {
		_ = fn()
	}
	t.cleanups = nil
}

// Committed reports whether Commit has run.
func (t *Tx) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

// Rollback executes the log in strict reverse order and clears it.
// Individual action failures are reported and skipped, never fatal, so a
// rollback always runs to completion.
func (t *Tx) Rollback() {
	t.mu.Lock()
	actions := t.rollbacks
	t.rollbacks = nil
	t.cleanups = nil
	t.mu.Unlock()

	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		t.verbose("rollback: %s\n", a.Desc)
		if err := a.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "rollback %s: %s: %v\n", t.name, a.Desc, err)
		}
	}
}

// snapshotPath returns a timestamped sibling path for a pre-mutation backup.
func snapshotPath(path string) string {
	return fmt.Sprintf("%s.txn-%d", path, time.Now().UnixNano())
}

// AtomicWrite writes data to path under the transaction. A pre-existing file
// is first copied to a timestamped snapshot whose restoration is the
// registered inverse; a new file registers deletion. The inverse is always
// registered before the write happens.
func (t *Tx) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}

	prev, err := os.ReadFile(path)
	switch {
	case err == nil:
		info, statErr := os.Stat(path)
		if statErr != nil {
			return fmt.Errorf("stat %s: %w", path, statErr)
		}
		snap := snapshotPath(path)
		if writeErr := os.WriteFile(snap, prev, info.Mode().Perm()); writeErr != nil {
			return fmt.Errorf("snapshot %s: %w", path, writeErr)
		}
		mode := info.Mode().Perm()
		t.AddRollback("restore "+path, func() error {
			if restoreErr := os.WriteFile(path, prev, mode); restoreErr != nil {
				return restoreErr
			}
			return os.Remove(snap)
		})
		t.addCleanup(func() error { return os.Remove(snap) })
	case os.IsNotExist(err):
		t.AddRollback("remove "+path, func() error {
			rmErr := os.Remove(path)
			if os.IsNotExist(rmErr) {
				return nil
			}
			return rmErr
		})
	default:
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// AtomicMove renames src to dst under the transaction. A pre-existing dst is
// snapshotted first; the inverse moves src back and restores dst.
func (t *Tx) AtomicMove(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", dst, err)
	}

	if prev, err := os.ReadFile(dst); err == nil {
		info, statErr := os.Stat(dst)
		if statErr != nil {
			return fmt.Errorf("stat %s: %w", dst, statErr)
		}
		mode := info.Mode().Perm()
		t.AddRollback("restore "+dst, func() error {
			return os.WriteFile(dst, prev, mode)
		})
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", dst, err)
	}

	t.AddRollback("move "+dst+" back to "+src, func() error {
		mvErr := os.Rename(dst, src)
		if os.IsNotExist(mvErr) {
			return nil
		}
		return mvErr
	})

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

// Run executes fn inside a transaction named name. The rollback log is
// replayed on every non-success exit path: an error return, a panic, or an
// interrupt signal delivered while the transaction is open. On success the
// transaction commits.
func Run(name string, fn func(*Tx) error) (err error) {
	t := Begin(name)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case s := <-sig:
			fmt.Fprintf(os.Stderr, "%s interrupted, rolling back\n", name)
			t.Rollback()
			signal.Stop(sig)
			// 128+signal, matching shell convention.
			if s == syscall.SIGTERM {
				os.Exit(143)
			}
			os.Exit(130)
		case <-done:
		}
	}()

	defer func() {
		close(done)
		signal.Stop(sig)
		if r := recover(); r != nil {
			t.Rollback()
			panic(r)
		}
		if err != nil {
			t.Rollback()
			return
		}
		t.Commit()
	}()

	return fn(t)
}
