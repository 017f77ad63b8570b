// Command pax is a multi-format source/binary package manager. This file's
// dispatch shape — a command interface, a flag.FlagSet per subcommand, and
// a parseArgs/resetUsage pair — is grounded on cmd/dep's own main.go; this
// wiring stays thin on purpose: every verb immediately hands off to an
// internal package and does no business logic of its own.
package main

import (
 "bytes"
 "flag"
 "fmt"
 "io"
 "log"
 "os"
 "strings"
 "text/tabwriter"

 "pax/internal/cfg"
 "pax/internal/pkgerrors"
 "pax/internal/pkglog"
)

// exitPermissionRequired is returned instead of the generic failure code 1
// when a command fails because the process lacks the privileges an
// operation requires, so a wrapping script can distinguish "needs sudo"
// from "genuinely failed" without parsing stderr text.
const exitPermissionRequired = 77

type command interface {
 Name() string
 Args() string
 ShortHelp() string
 LongHelp() string
 Register(*flag.FlagSet)
 Run(*appContext, []string) error
}

// appContext is the shared handle every subcommand wires against, built
// once per invocation the way dep's Ctx is built once in Config.Run.
type appContext struct {
 Paths cfg.Paths
 Logger *pkglog.Logger
 Out *log.Logger
 Err *log.Logger
 Yes bool
 Sandboxed bool
}

func main() {
 c := &Config{
 Args: os.Args,
 Stdout: os.Stdout,
 Stderr: os.Stderr,
 Env: os.Environ(),
 }
 os.Exit(c.Run())
}

// Config specifies a full configuration for a pax execution.
type Config struct {
 Args []string
 Env []string
 Stdout, Stderr io.Writer
}

func (c *Config) Run() (exitCode int) {
 commands := []command{
 &initCommand{},
 &installCommand{},
 &removeCommand{},
 &upgradeCommand{},
 &updateCommand{},
 &searchCommand{},
 &infoCommand{},
 &listCommand{},
 &cleanCommand{},
 &trustCommand{},
 &repoCommand{},
 &configureCommand{},
 }

 outLogger := log.New(c.Stdout, "", 0)
 errLogger := log.New(c.Stderr, "", 0)

 usage := func() {
 errLogger.Println("pax is a multi-format source/binary package manager")
 errLogger.Println()
 errLogger.Println("Usage: pax <command>")
 errLogger.Println()
 errLogger.Println("Commands:")
 errLogger.Println()
 w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
 for _, cmd := range commands {
 fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
 }
 w.Flush()
 errLogger.Println()
 errLogger.Println(`Use "pax help <command>" for more information about a command.`)
 }

 cmdName, printCommandHelp, exit := parseArgs(c.Args)
 if exit {
 usage()
 return 1
 }

 for _, cmd := range commands {
 if cmd.Name() != cmdName {
 continue
 }

 fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
 fs.SetOutput(c.Stderr)
 yes := fs.Bool("yes", false, "suppress confirmation prompts")
 root := fs.String("root", "", "sandbox every path root under this directory (tests/debugging)")
 debug := fs.Bool("debug", getEnv(c.Env, "PAX_DEBUG") != "", "raise the minimum log level")
 cmd.Register(fs)
 resetUsage(errLogger, fs, cmdName, cmd.Args(), cmd.LongHelp())

 if printCommandHelp {
 fs.Usage()
 return 1
 }
 if err := fs.Parse(c.Args[2:]); err != nil {
 return 1
 }

 logger := pkglog.New(c.Stderr, pkglog.Info)
 if *debug {
 logger.SetMinLevel(pkglog.Debug)
 }

 var paths cfg.Paths
 if *root != "" {
 paths = cfg.New(*root)
 } else {
 paths = cfg.FromEnvironment()
 }

 ctx := &appContext{Paths: paths, Logger: logger, Out: outLogger, Err: errLogger, Yes: *yes, Sandboxed: *root != ""}

 if err := cmd.Run(ctx, fs.Args()); err != nil {
 errLogger.Printf("pax: %v\n", err)
 if pkgerrors.Of(err) == pkgerrors.Permission {
 return exitPermissionRequired
 }
 return 1
 }
 return 0
 }

 errLogger.Printf("pax: %s: no such command\n", cmdName)
 usage()
 return 1
}

func resetUsage(logger *log.Logger, fs *flag.FlagSet, name, args, longHelp string) {
 var (
 hasFlags bool
 flagBlock bytes.Buffer
 flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
 )
 fs.VisitAll(func(f *flag.Flag) {
 hasFlags = true
 defValue := f.DefValue
 if defValue == "" {
 defValue = "<none>"
 }
 fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
 })
 flagWriter.Flush()
 fs.Usage = func() {
 logger.Printf("Usage: pax %s %s\n", name, args)
 logger.Println()
 logger.Println(strings.TrimSpace(longHelp))
 logger.Println()
 if hasFlags {
 logger.Println("Flags:")
 logger.Println()
 logger.Println(flagBlock.String())
 }
 }
}

// parseArgs determines the name of the pax command and whether the user
// asked for help to be printed.
func parseArgs(args []string) (cmdName string, printCmdUsage bool, exit bool) {
 isHelpArg := func() bool {
 return strings.Contains(strings.ToLower(args[1]), "help") || strings.ToLower(args[1]) == "-h"
 }

 switch len(args) {
 case 0, 1:
 exit = true
 case 2:
 if isHelpArg() {
 exit = true
 }
 cmdName = args[1]
 default:
 if isHelpArg() {
 cmdName = args[2]
 printCmdUsage = true
 } else {
 cmdName = args[1]
 }
 }
 return cmdName, printCmdUsage, exit
}

func getEnv(env []string, key string) string {
 for i := len(env) - 1; i >= 0; i-- {
 kv := strings.SplitN(env[i], "=", 2)
 if kv[0] == key {
 if len(kv) > 1 {
 return kv[1]
 }
 return ""
 }
 }
 return ""
}
