// Package pkglog provides the process-wide logger. It is generalized from
// dep's minimal io.Writer wrapper (log/logger.go) into a leveled,
// colorized logger, while keeping the same "thin wrapper around an
// io.Writer" shape rather than pulling in a structured-logging framework
// dep never uses.
package pkglog

import (
 "fmt"
 "io"
 "os"
 "sync"
 "time"
)

// Level orders log severity, lowest first.
type Level uint8

const (
 Debug Level = iota
 Info
 Warn
 Error
)

func (l Level) String() string {
 switch l {
 case Debug:
 return "DEBUG"
 case Info:
 return "INFO"
 case Warn:
 return "WARN"
 case Error:
 return "ERROR"
 default:
 return "???"
 }
}

func (l Level) color() string {
 switch l {
 case Debug:
 return "\x1b[90m"
 case Info:
 return "\x1b[94m"
 case Warn:
 return "\x1b[93m"
 case Error:
 return "\x1b[91m"
 default:
 return ""
 }
}

const reset = "\x1b[0m"

// Logger writes leveled, optionally colorized lines to an io.Writer, and
// separately appends raw lines to a transaction log file. Treat it as
// write-only: nothing in pax reads its own logs back except the
// transaction-journal replay path in internal/txn, which uses its own file.
type Logger struct {
 mu sync.Mutex
 out io.Writer
 minLevel Level
 color bool

 txnPath string
 txnFile *os.File
}

// New returns a Logger writing to w at the given minimum level. Debug
// toggles should call SetMinLevel(Debug).
func New(w io.Writer, min Level) *Logger {
 return &Logger{out: w, minLevel: min, color: true}
}

// SetMinLevel adjusts the minimum level logged, for the debug environment
// toggle.
func (l *Logger) SetMinLevel(min Level) {
 l.mu.Lock()
 defer l.mu.Unlock()
 l.minLevel = min
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
 l.mu.Lock()
 defer l.mu.Unlock()
 if level < l.minLevel {
 return
 }
 msg := fmt.Sprintf(format, args...)
 if l.color {
 fmt.Fprintf(l.out, "%s[%s]%s %s\n", level.color(), level, reset, msg)
 } else {
 fmt.Fprintf(l.out, "[%s] %s\n", level, msg)
 }
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(Debug, format, args...) }
func (l *Logger) Info(format string, args ...interface{}) { l.log(Info, format, args...) }
func (l *Logger) Warn(format string, args ...interface{}) { l.log(Warn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(Error, format, args...) }

// OpenTransactionLog points the logger at an append-only transaction log
// file. LogTransaction appends
// one line per recorded operation; ClearTransactionLog truncates it on
// commit, matching original_source/src/transaction's commit() behavior.
func (l *Logger) OpenTransactionLog(path string) error {
 l.mu.Lock()
 defer l.mu.Unlock()
 f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
 if err != nil {
 return err
 }
 if l.txnFile != nil {
 l.txnFile.Close()
 }
 l.txnPath = path
 l.txnFile = f
 return nil
}

// LogTransaction appends one line to the transaction log.
func (l *Logger) LogTransaction(op, detail string) error {
 l.mu.Lock()
 defer l.mu.Unlock()
 if l.txnFile == nil {
 return nil
 }
 _, err := fmt.Fprintf(l.txnFile, "%s\t%s\t%s\n", time.Now().UTC().Format(time.RFC3339), op, detail)
 return err
}

// ClearTransactionLog truncates the transaction log file, called on a
// successful commit.
func (l *Logger) ClearTransactionLog() error {
 l.mu.Lock()
 defer l.mu.Unlock()
 if l.txnFile == nil {
 return nil
 }
 return l.txnFile.Truncate(0)
}

// Default is the process-wide logger, matching dep's pattern of a
// single global sink (internal/util.Verbose / Logf) that every component
// implicitly writes through.
var Default = New(os.Stderr, Info)
