// Package trust implements file hashing and Ed25519 signature verification
// against a directory-backed trust store of public keys. Grounded on
// original_source/src/crypto (calculate_sha256, verify_signature,
// verify_with_trusted_keys, load_trusted_keys) with the Rust crate's
// ed25519-dalek/sha2 calls mapped onto Go's standard crypto/ed25519 and
// crypto/sha256 — 32-byte keys and 64-byte raw-bytes detached signatures
// are exactly the stdlib ed25519 API's shape, so there is no ecosystem
// library that fits better than the standard library here.
package trust

import (
 "crypto/ed25519"
 "crypto/sha256"
 "encoding/hex"
 "io"
 "os"
 "path/filepath"
 "strings"

 "pax/internal/pkgerrors"
)

// Sha256File hashes the file at path and returns its lowercase hex digest.
func Sha256File(path string) (string, error) {
 f, err := os.Open(path)
 if err != nil {
 return "", pkgerrors.Wrap(pkgerrors.IO, err, "open file for hashing")
 }
 defer f.Close()

 h := sha256.New()
 if _, err := io.Copy(h, f); err != nil {
 return "", pkgerrors.Wrap(pkgerrors.IO, err, "hash file")
 }
 return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyHash reports whether the file at path hashes to expected. The
// comparison is case-insensitive.
func VerifyHash(path, expected string) (bool, error) {
 actual, err := Sha256File(path)
 if err != nil {
 return false, err
 }
 return strings.EqualFold(actual, expected), nil
}

// VerifySignature verifies a detached 64-byte Ed25519 signature of file's
// raw bytes against a 32-byte public key.
func VerifySignature(file string, signature, publicKey []byte) (bool, error) {
 if len(publicKey) != ed25519.PublicKeySize {
 return false, pkgerrors.New(pkgerrors.Input, "public key must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
 }
 if len(signature) != ed25519.SignatureSize {
 return false, pkgerrors.New(pkgerrors.Input, "signature must be %d bytes, got %d", ed25519.SignatureSize, len(signature))
 }
 contents, err := os.ReadFile(file)
 if err != nil {
 return false, pkgerrors.Wrap(pkgerrors.IO, err, "read file for signature verification")
 }
 return ed25519.Verify(ed25519.PublicKey(publicKey), contents, signature), nil
}

// Key is one entry of the trust store: a label (the file's basename minus
// ".pub") and its raw 32-byte Ed25519 public key.
type Key struct {
 Label string
 Bytes []byte
}

// Fingerprint returns the first 8 hex characters of the key, used by `trust
// list` to identify a key without printing the whole thing.
func (k Key) Fingerprint() string {
 return hex.EncodeToString(k.Bytes)[:8]
}

// Store is a directory of hex-encoded 32-byte Ed25519 public keys named
// "<label>.pub", matching original_source/src/crypto's trust store layout.
type Store struct {
 dir string
}

func NewStore(dir string) *Store {
 return &Store{dir: dir}
}

// List returns every key currently in the trust store.
func (s *Store) List() ([]Key, error) {
 entries, err := os.ReadDir(s.dir)
 if os.IsNotExist(err) {
 return nil, nil
 }
 if err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.IO, err, "list trust store")
 }

 var keys []Key
 for _, e := range entries {
 if e.IsDir() || !strings.HasSuffix(e.Name(), ".pub") {
 continue
 }
 label := strings.TrimSuffix(e.Name(), ".pub")
 raw, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
 if err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.IO, err, "read trusted key "+label)
 }
 b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
 if err != nil || len(b) != ed25519.PublicKeySize {
 return nil, pkgerrors.New(pkgerrors.Input, "trusted key %q is not a 64-hex-character Ed25519 public key", label)
 }
 keys = append(keys, Key{Label: label, Bytes: b})
 }
 return keys, nil
}

// Add writes a new trusted key, hex-encoded, to "<label>.pub".
func (s *Store) Add(label string, publicKey []byte) error {
 if len(publicKey) != ed25519.PublicKeySize {
 return pkgerrors.New(pkgerrors.Input, "public key must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
 }
 if err := os.MkdirAll(s.dir, 0o755); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "create trust store directory")
 }
 path := filepath.Join(s.dir, label+".pub")
 if err := os.WriteFile(path, []byte(hex.EncodeToString(publicKey)), 0o644); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "write trusted key "+label)
 }
 return nil
}

// Remove deletes a trusted key by label.
func (s *Store) Remove(label string) error {
 path := filepath.Join(s.dir, label+".pub")
 if err := os.Remove(path); err != nil {
 if os.IsNotExist(err) {
 return pkgerrors.New(pkgerrors.NotFound, "no trusted key labeled %q", label)
 }
 return pkgerrors.Wrap(pkgerrors.IO, err, "remove trusted key "+label)
 }
 return nil
}

// VerifyAgainstTrustStore verifies signature against every key in the
// store, short-circuiting on the first that succeeds. It fails closed: an
// empty trust store is a TrustError, not a silently-accepted false, matching
// original_source's verify_with_trusted_keys (which refuses to proceed
// with zero keys rather than silently reporting "unverified").
func (s *Store) VerifyAgainstTrustStore(file string, signature []byte) (bool, error) {
 keys, err := s.List()
 if err != nil {
 return false, err
 }
 if len(keys) == 0 {
 return false, pkgerrors.New(pkgerrors.Trust, "no trusted keys found; add repository keys with `pax trust add`")
 }
 for _, k := range keys {
 ok, err := VerifySignature(file, signature, k.Bytes)
 if err != nil {
 continue
 }
 if ok {
 return true, nil
 }
 }
 return false, nil
}
