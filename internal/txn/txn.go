// Package txn implements an operation journal recording every database,
// filesystem, and download mutation an install or removal performs, so a
// partial failure can be undone in reverse order. Grounded on
// original_source/src/transaction (Operation enum, record_*/rollback
// methods, Drop-triggered "dropped without commit" warning) with the
// journal persisted as TOML via dep's already-wired pelletier/go-toml
// (used elsewhere in dep for Gopkg.toml/Gopkg.lock).
package txn

import (
 "os"
 "sync"

 "github.com/pelletier/go-toml"

 "pax/internal/db"
 "pax/internal/pkgerrors"
 "pax/internal/pkglog"
)

// Kind tags one recorded operation's type.
type Kind string

const (
 KindDBInsert Kind = "db_insert"
 KindStoreAdd Kind = "store_add"
 KindSymlink Kind = "symlink"
 KindDownload Kind = "download"
)

// Op is one journal entry. Only the fields meaningful to Kind are set.
type Op struct {
 Kind Kind `toml:"kind"`
 Table string `toml:"table,omitempty"` // db_insert
 Key string `toml:"key,omitempty"` // db_insert: the package name
 Hash string `toml:"hash,omitempty"` // store_add
 Path string `toml:"path,omitempty"` // symlink, download
}

type journalFile struct {
 Ops []Op `toml:"op"`
}

// Rollback supplies the live components a Transaction needs to undo its
// recorded operations. Every compensation is idempotent and tolerates
// "already undone" state.
type Rollback struct {
	DB    *db.DB
	Store interface{ Remove(hash string) error }
}

// Transaction wraps one install or removal. Every recorded operation is
// immediately persisted to the journal file, so a crash mid-transaction
// leaves an on-disk record the next run can detect and offer to roll back
// before acquiring the process lock.
type Transaction struct {
 mu sync.Mutex
 path string
 ops []Op
 done bool // committed or rolled back
 logger *pkglog.Logger
}

// New starts a fresh transaction journaling to path, which must not
// already hold an un-rolled-back journal (callers should check
// LoadOrphan first).
func New(path string, logger *pkglog.Logger) *Transaction {
 if logger == nil {
 logger = pkglog.Default
 }
 return &Transaction{path: path, logger: logger}
}

// LoadOrphan reads an existing journal file left behind by a process that
// exited without committing or rolling back. ok is false when no journal
// exists (the common case).
func LoadOrphan(path string, logger *pkglog.Logger) (*Transaction, bool, error) {
 raw, err := os.ReadFile(path)
 if err != nil {
 if os.IsNotExist(err) {
 return nil, false, nil
 }
 return nil, false, pkgerrors.Wrap(pkgerrors.IO, err, "read transaction journal")
 }
 if len(raw) == 0 {
 return nil, false, nil
 }
 var jf journalFile
 if err := toml.Unmarshal(raw, &jf); err != nil {
 return nil, false, pkgerrors.Wrap(pkgerrors.Input, err, "parse transaction journal")
 }
 if len(jf.Ops) == 0 {
 return nil, false, nil
 }
 t := New(path, logger)
 t.ops = jf.Ops
 return t, true, nil
}

func (o Op) detail() string {
 switch o.Kind {
 case KindDBInsert:
 return o.Table + ":" + o.Key
 case KindStoreAdd:
 return o.Hash
 case KindSymlink, KindDownload:
 return o.Path
 default:
 return ""
 }
}

// RecordDBInsert records a database row insertion keyed by table and the
// package name.
func (t *Transaction) RecordDBInsert(table, key string) error {
 return t.appendAndLog(Op{Kind: KindDBInsert, Table: table, Key: key})
}

// RecordStoreAdd records a content-addressed store extraction.
func (t *Transaction) RecordStoreAdd(hash string) error {
 return t.appendAndLog(Op{Kind: KindStoreAdd, Hash: hash})
}

// RecordSymlink records an activation-layer symlink creation.
func (t *Transaction) RecordSymlink(path string) error {
 return t.appendAndLog(Op{Kind: KindSymlink, Path: path})
}

// RecordDownload records a cache file download.
func (t *Transaction) RecordDownload(path string) error {
 return t.appendAndLog(Op{Kind: KindDownload, Path: path})
}

func (t *Transaction) appendAndLog(op Op) error {
 t.mu.Lock()
 defer t.mu.Unlock()
 t.ops = append(t.ops, op)
 if err := t.persistLockedNoLog(); err != nil {
 return err
 }
 t.logger.LogTransaction(string(op.Kind), op.detail())
 return nil
}

func (t *Transaction) persistLockedNoLog() error {
 jf := journalFile{Ops: t.ops}
 raw, err := toml.Marshal(jf)
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "encode transaction journal")
 }
 if err := os.WriteFile(t.path, raw, 0o644); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "write transaction journal")
 }
 return nil
}

// Commit clears the journal and the transaction log file on success.
func (t *Transaction) Commit() error {
 t.mu.Lock()
 defer t.mu.Unlock()
 if t.done {
 return nil
 }
 t.done = true
 t.ops = nil
 if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
 return pkgerrors.Wrap(pkgerrors.IO, err, "clear transaction journal")
 }
 t.logger.ClearTransactionLog()
 t.logger.Info("transaction committed")
 return nil
}

// Rollback walks the journal in reverse, issuing the compensating
// operation for each recorded op. Downloaded cache files are NOT removed by
// rollback: the cache is a shared, persistent resource across transactions,
// and re-downloading a large payload after every failed install would
// defeat its purpose.
func (t *Transaction) Rollback(rb Rollback) error {
 t.mu.Lock()
 defer t.mu.Unlock()
 if t.done {
 return nil
 }
 t.logger.Warn("rolling back transaction")

 for i := len(t.ops) - 1; i >= 0; i-- {
 op := t.ops[i]
 switch op.Kind {
 case KindDBInsert:
 if op.Table == "packages" && rb.DB != nil {
 if err := rb.DB.RemovePackage(op.Key); err != nil {
 t.logger.Error("rollback: remove package %s: %v", op.Key, err)
 }
 }
 case KindStoreAdd:
 if rb.Store != nil {
 if err := rb.Store.Remove(op.Hash); err != nil {
 t.logger.Error("rollback: remove store entry %s: %v", op.Hash, err)
 }
 }
 case KindSymlink:
 if err := os.Remove(op.Path); err != nil && !os.IsNotExist(err) {
 t.logger.Error("rollback: remove symlink %s: %v", op.Path, err)
 }
 case KindDownload:
 // intentionally not reversed; see doc comment above.
 }
 }

 t.done = true
 t.ops = nil
 if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
 return pkgerrors.Wrap(pkgerrors.IO, err, "clear transaction journal")
 }
 t.logger.ClearTransactionLog()
 t.logger.Info("rollback completed")
 return nil
}

// Dropped reports whether this transaction was neither committed nor
// rolled back, matching original_source's Drop-triggered warning. Callers
// should invoke this in a defer at every transaction call site.
func (t *Transaction) Dropped() bool {
 t.mu.Lock()
 defer t.mu.Unlock()
 return !t.done
}

// WarnIfDropped logs a warning if the transaction was left neither
// committed nor rolled back; intended to run in a defer.
func (t *Transaction) WarnIfDropped() {
 if t.Dropped() {
 t.logger.Warn("transaction dropped without commit - operations may be incomplete")
 }
}
