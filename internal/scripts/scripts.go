// Package scripts runs the build/install/uninstall/purge script bodies a
// Compilable PackageRecord carries. Grounded on
// original_source/metadata/src/versioning::Specific::remove, which shells
// out via Command::new("/usr/bin/bash").arg("-c").arg(script).status(), and
// on dep's gps/cmd_unix.go cancellation shape (SIGINT, then a
// bounded grace period, then a hard kill) adapted from VCS subprocesses to
// install scripts: cancellation during a script invocation waits for the
// script subprocess to exit, killed after a bounded grace period and then
// force-killed.
package scripts

import (
 "bytes"
 "context"
 "os"
 "os/exec"
 "time"

 "pax/internal/pkgerrors"
 "pax/internal/pkglog"
)

const shell = "/usr/bin/bash"

// DefaultGracePeriod bounds how long a cancelled script is given to exit
// after an interrupt signal before being force-killed.
const DefaultGracePeriod = 10 * time.Second

// Run executes script's body through bash -c, capturing combined
// stdout/stderr for the error message on a non-zero exit. If ctx is
// cancelled before the script finishes, the subprocess is sent os.Interrupt
// and given gracePeriod to exit before Process.Kill is called.
func Run(ctx context.Context, script string, gracePeriod time.Duration, logger *pkglog.Logger) error {
 if script == "" {
 return nil
 }
 if logger == nil {
 logger = pkglog.Default
 }
 if gracePeriod <= 0 {
 gracePeriod = DefaultGracePeriod
 }

 cmd := exec.Command(shell, "-c", script)
 var out bytes.Buffer
 cmd.Stdout = &out
 cmd.Stderr = &out

 if err := cmd.Start(); err != nil {
 return pkgerrors.Wrap(pkgerrors.Script, err, "start script")
 }

 waitDone := make(chan error, 1)
 go func() { waitDone <- cmd.Wait() }()

 select {
 case err := <-waitDone:
 if err != nil {
 logger.Error("script failed: %s", out.String())
 return pkgerrors.Wrap(pkgerrors.Script, err, "script exited non-zero")
 }
 return nil
 case <-ctx.Done():
 logger.Warn("cancelling running script, waiting up to %s for it to exit", gracePeriod)
 if err := cmd.Process.Signal(os.Interrupt); err != nil {
 cmd.Process.Kill()
 }
 select {
 case <-waitDone:
 case <-time.After(gracePeriod):
 logger.Warn("script did not exit within the grace period, killing it")
 cmd.Process.Kill()
 <-waitDone
 }
 return pkgerrors.Wrap(pkgerrors.Script, ctx.Err(), "script cancelled")
 }
}
