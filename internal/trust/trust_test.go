package trust

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVerifyHashCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	hash, err := Sha256File(path)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyHash(path, strings.ToUpper(hash))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected case-insensitive hash match")
	}
}

func TestSignAndVerify(t *testing.T) {
	dir := t.TempDir()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "payload.bin")
	if err := os.WriteFile(path, []byte("package contents"), 0o644); err != nil {
		t.Fatal(err)
	}
	contents, _ := os.ReadFile(path)
	sig := ed25519.Sign(priv, contents)

	ok, err := VerifySignature(path, sig, pub)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected valid signature to verify")
	}

	sig[0] ^= 0xFF
	ok, err = VerifySignature(path, sig, pub)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("expected tampered signature to fail")
	}
}

func TestEmptyTrustStoreFailsClosed(t *testing.T) {
	store := NewStore(t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	os.WriteFile(path, []byte("x"), 0o644)

	_, err := store.VerifyAgainstTrustStore(path, make([]byte, ed25519.SignatureSize))
	if err == nil {
		t.Fatalf("expected TrustError when the trust store is empty")
	}
}

func TestTrustStoreAddListRemove(t *testing.T) {
	store := NewStore(t.TempDir())
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Add("repo-a", pub); err != nil {
		t.Fatal(err)
	}

	keys, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0].Label != "repo-a" {
		t.Fatalf("expected one key labeled repo-a, got %+v", keys)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	os.WriteFile(path, []byte("hello"), 0o644)
	sig := ed25519.Sign(priv, []byte("hello"))

	ok, err := store.VerifyAgainstTrustStore(path, sig)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected signature to verify against the trust store")
	}

	if err := store.Remove("repo-a"); err != nil {
		t.Fatal(err)
	}
	keys, _ = store.List()
	if len(keys) != 0 {
		t.Fatalf("expected trust store to be empty after remove")
	}
}
