// Package cfg resolves the on-disk path layout
// (config-root, state-root, cache-root, run-root, log-root) and the
// settings persisted under config-root: the endpoints list and the
// `configure --set key=value` store. Grounded on dep's Ctx (context.go —
// a small struct resolving a root location once at startup and handing
// out derived paths) and on original_source/src/pax_init and
// src/configure for the endpoints.txt/settings shape, adapted from YAML
// (original_source's SettingsYaml) to TOML via dep's already-wired
// pelletier/go-toml, since this module carries no YAML dependency anywhere
// else and TOML is dep's own settings format (Gopkg.toml).
package cfg

import (
 "bufio"
 "os"
 "path/filepath"
 "strings"

 "github.com/pelletier/go-toml"

 "pax/internal/pkgerrors"
)

// Paths resolves every location pax writes to, rooted under a single
// base directory unless overridden by an environment variable. Tests and
// the CLI's `--root` escape hatch construct this directly with New;
// production code should prefer FromEnvironment.
type Paths struct {
 ConfigRoot string
 StateRoot string
 CacheRoot string
 RunRoot string
 LogRoot string
}

const (
 envConfigRoot = "PAX_CONFIG_ROOT"
 envStateRoot = "PAX_STATE_ROOT"
 envCacheRoot = "PAX_CACHE_ROOT"
 envRunRoot = "PAX_RUN_ROOT"
 envLogRoot = "PAX_LOG_ROOT"
)

// New builds Paths rooted entirely under base, one subdirectory per root.
// Useful for tests and for a `--root` override that sandboxes the whole
// tree in one place.
func New(base string) Paths {
 return Paths{
 ConfigRoot: filepath.Join(base, "etc"),
 StateRoot: filepath.Join(base, "var", "lib"),
 CacheRoot: filepath.Join(base, "var", "cache"),
 RunRoot: filepath.Join(base, "run"),
 LogRoot: filepath.Join(base, "var", "log"),
 }
}

// FromEnvironment resolves Paths the way a production invocation does:
// each root defaults to the conventional system location but can be
// overridden independently by its environment variable, matching the
// teacher's GOPATH-resolution pattern of "check the environment, else
// fall back to a sane default" in context.go.
func FromEnvironment() Paths {
 return Paths{
 ConfigRoot: envOr(envConfigRoot, "/etc/pax"),
 StateRoot: envOr(envStateRoot, "/var/lib/pax"),
 CacheRoot: envOr(envCacheRoot, "/var/cache/pax"),
 RunRoot: envOr(envRunRoot, "/run/pax"),
 LogRoot: envOr(envLogRoot, "/var/log/pax"),
 }
}

func envOr(key, fallback string) string {
 if v := os.Getenv(key); v != "" {
 return v
 }
 return fallback
}

// MkdirAll creates every root directory (and the trusted-keys
// subdirectory), so a fresh `pax init` has somewhere to write.
func (p Paths) MkdirAll() error {
 dirs := []string{p.ConfigRoot, p.TrustedKeysDir(), p.StateRoot, filepath.Dir(p.DatabasePath()), p.StoreRoot(), p.LinksRoot(), p.CacheRoot, p.RunRoot, p.LogRoot}
 for _, d := range dirs {
 if err := os.MkdirAll(d, 0o755); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "create "+d)
 }
 }
 return nil
}

func (p Paths) EndpointsFile() string { return filepath.Join(p.ConfigRoot, "endpoints.txt") }
func (p Paths) TrustedKeysDir() string { return filepath.Join(p.ConfigRoot, "trusted-keys") }
func (p Paths) SettingsFile() string { return filepath.Join(p.ConfigRoot, "settings.toml") }
func (p Paths) DatabasePath() string { return filepath.Join(p.StateRoot, "db", "packages.db") }
func (p Paths) StoreRoot() string { return filepath.Join(p.StateRoot, "store") }
func (p Paths) LinksRoot() string { return filepath.Join(p.StateRoot, "links") }
func (p Paths) LockPath() string { return filepath.Join(p.RunRoot, "lock") }
func (p Paths) JournalPath() string { return filepath.Join(p.RunRoot, "transactions.journal") }
func (p Paths) MainLogPath() string { return filepath.Join(p.LogRoot, "main.log") }
func (p Paths) TransactionsLogPath() string {
 return filepath.Join(p.LogRoot, "transactions.log")
}

// LoadEndpoints reads the newline-separated origin URL list. A missing file
// is not an error: a fresh install has no configured origins yet, matching
// original_source/src/pax_init's "first run" state.
func (p Paths) LoadEndpoints() ([]string, error) {
 f, err := os.Open(p.EndpointsFile())
 if err != nil {
 if os.IsNotExist(err) {
 return nil, nil
 }
 return nil, pkgerrors.Wrap(pkgerrors.IO, err, "read endpoints file")
 }
 defer f.Close()

 var out []string
 scanner := bufio.NewScanner(f)
 for scanner.Scan() {
 line := strings.TrimSpace(scanner.Text())
 if line == "" || strings.HasPrefix(line, "#") {
 continue
 }
 out = append(out, line)
 }
 if err := scanner.Err(); err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.IO, err, "scan endpoints file")
 }
 return out, nil
}

// WriteEndpoints overwrites the endpoints file, one URL per line, as
// original_source/src/pax_init's write_sources does after a `pax-init`
// pull.
func (p Paths) WriteEndpoints(urls []string) error {
 if err := os.MkdirAll(p.ConfigRoot, 0o755); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "create config root")
 }
 var b strings.Builder
 for _, u := range urls {
 b.WriteString(u)
 b.WriteByte('\n')
 }
 if err := os.WriteFile(p.EndpointsFile(), []byte(b.String()), 0o644); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "write endpoints file")
 }
 return nil
}

// Settings is the persisted `configure --set key=value` store, per
// "configure --set key=value" CLI verb and
// original_source/src/configure's SettingsYaml (here a flat TOML table
// instead of YAML, see package doc comment).
type Settings struct {
 Values map[string]string `toml:"values"`
}

// LoadSettings reads the settings file, returning an empty Settings (not
// an error) when none has been written yet.
func (p Paths) LoadSettings() (Settings, error) {
 raw, err := os.ReadFile(p.SettingsFile())
 if err != nil {
 if os.IsNotExist(err) {
 return Settings{Values: map[string]string{}}, nil
 }
 return Settings{}, pkgerrors.Wrap(pkgerrors.IO, err, "read settings file")
 }
 var s Settings
 if err := toml.Unmarshal(raw, &s); err != nil {
 return Settings{}, pkgerrors.Wrap(pkgerrors.Input, err, "parse settings file")
 }
 if s.Values == nil {
 s.Values = map[string]string{}
 }
 return s, nil
}

// Set implements `configure --set key=value`: load, mutate, persist.
func (p Paths) Set(key, value string) error {
 s, err := p.LoadSettings()
 if err != nil {
 return err
 }
 s.Values[key] = value
 raw, err := toml.Marshal(s)
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "encode settings file")
 }
 if err := os.MkdirAll(p.ConfigRoot, 0o755); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "create config root")
 }
 if err := os.WriteFile(p.SettingsFile(), raw, 0o644); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "write settings file")
 }
 return nil
}
