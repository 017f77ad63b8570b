// Package lock implements the single cross-process mutex that serializes
// every write to the database, store, and activation layer. It layers a
// "pid\ntimestamp" staleness protocol (original_source/src/lock) on top of
// github.com/theckman/go-flock's advisory OS-level flock, already vendored
// by dep, so the actual exclusion is a real kernel-enforced lock rather
// than a bare create-exclusive race, while the pid/timestamp content still
// gives crash-recovery staleness detection across filesystems where flock
// semantics don't survive a reboot.
package lock

import (
 "fmt"
 "os"
 "strconv"
 "strings"
 "time"

 flock "github.com/theckman/go-flock"
 "pax/internal/pkgerrors"
)

// StaleHorizon is the age beyond which a held lock is considered abandoned.
const StaleHorizon = 5 * time.Minute

// Lock is the on-disk process lock at <run-root>/lock.
type Lock struct {
 path string
 fl *flock.Flock
}

// New returns a Lock bound to path, without acquiring it.
func New(path string) *Lock {
 return &Lock{path: path, fl: flock.NewFlock(path)}
}

// Acquire attempts to take the lock. If the file exists and is held by a
// live, non-stale process, it returns a StateError naming that PID. If the
// existing lock is stale (owning PID no longer running, or timestamp older
// than StaleHorizon), the stale lock is removed and acquisition retried
// exactly once.
func (l *Lock) Acquire() error {
 ok, err := l.fl.TryLock()
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "acquire process lock")
 }
 if ok {
 return l.writeOwner()
 }

 stale, pid, err := l.isStale()
 if err != nil {
 return err
 }
 if !stale {
 return pkgerrors.New(pkgerrors.State, "already held by PID %d", pid)
 }

 if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
 return pkgerrors.Wrap(pkgerrors.IO, err, "remove stale lock")
 }
 ok, err = l.fl.TryLock()
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "acquire process lock after clearing stale lock")
 }
 if !ok {
 return pkgerrors.New(pkgerrors.State, "failed to acquire lock after clearing a stale one")
 }
 return l.writeOwner()
}

// Release deletes the lock file and releases the underlying flock. It is
// idempotent: releasing an already-released lock is a no-op, backstopping
// every exit path (including a panic recovered by a defer at the call
// site).
func (l *Lock) Release() error {
 if l.fl.Locked() {
 if err := l.fl.Unlock(); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "release process lock")
 }
 }
 if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
 return pkgerrors.Wrap(pkgerrors.IO, err, "remove lock file")
 }
 return nil
}

func (l *Lock) writeOwner() error {
 content := fmt.Sprintf("%d\n%d", os.Getpid(), time.Now().Unix())
 if err := os.WriteFile(l.path, []byte(content), 0o644); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "write lock owner")
 }
 return nil
}

// isStale reports whether the existing lock file names a dead process or a
// timestamp older than StaleHorizon, along with the PID it names (valid
// even when stale is true, for logging).
func (l *Lock) isStale() (stale bool, pid int, err error) {
 raw, err := os.ReadFile(l.path)
 if err != nil {
 if os.IsNotExist(err) {
 // Lost the race with another acquirer between TryLock failing
 // and us reading the file; treat as "not stale, try again
 // later" rather than erroring.
 return false, 0, nil
 }
 return false, 0, pkgerrors.Wrap(pkgerrors.IO, err, "read lock file")
 }

 lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
 if len(lines) < 2 {
 return true, 0, nil // malformed lock file: stale
 }
 pid, perr := strconv.Atoi(strings.TrimSpace(lines[0]))
 ts, terr := strconv.ParseInt(strings.TrimSpace(lines[1]), 10, 64)
 if perr != nil || terr != nil {
 return true, 0, nil
 }

 if !processLive(pid) {
 return true, pid, nil
 }
 if time.Since(time.Unix(ts, 0)) > StaleHorizon {
 return true, pid, nil
 }
 return false, pid, nil
}

// processLive checks /proc/<pid> on Linux, matching
// original_source/src/lock::is_process_running exactly.
func processLive(pid int) bool {
 _, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
 return err == nil
}
