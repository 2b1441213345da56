package fetch

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

func TestEnsureLocalPlainPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("inhaltlich egal"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, cleanup, err := EnsureLocal(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("EnsureLocal: %v", err)
	}
	defer cleanup()
	if got != path {
		t.Fatalf("path = %q, want %q", got, path)
	}
}

func TestEnsureLocalFileScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, cleanup, err := EnsureLocal(context.Background(), "file://"+path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if got != path {
		t.Fatalf("path = %q", got)
	}
}

func TestEnsureLocalStripsFragment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, cleanup, err := EnsureLocal(context.Background(), path+"#page=3", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if got != path {
		t.Fatalf("fragment not stripped: %q", got)
	}
}

func TestEnsureLocalHTTPDownload(t *testing.T) {
	body := []byte("heruntergeladener Inhalt")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	got, cleanup, err := EnsureLocal(context.Background(), srv.URL+"/doc.txt", Options{})
	if err != nil {
		t.Fatalf("EnsureLocal: %v", err)
	}
	defer cleanup()

	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, body) {
		t.Fatalf("downloaded %q", data)
	}
}

func TestEnsureLocalHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	if _, _, err := EnsureLocal(context.Background(), srv.URL+"/missing", Options{}); err == nil {
		t.Fatal("404 must error")
	}
}

// encryptBlob builds a container the decryptor accepts, for roundtrip tests.
func encryptBlob(t *testing.T, plain []byte, password string) []byte {
	t.Helper()
	salt := make([]byte, saltLen)
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(salt); err != nil {
		t.Fatal(err)
	}
	if _, err := rand.Read(nonce); err != nil {
		t.Fatal(err)
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iter, pbkdf2KeyBytes, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	out := append([]byte{}, gcmMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return append(out, gcm.Seal(nil, nonce, plain, nil)...)
}

func TestDecryptRoundtrip(t *testing.T) {
	plain := []byte("geheimer Quelltext des Dokuments")
	blob := encryptBlob(t, plain, "pw-123")

	if !isEncrypted(blob) {
		t.Fatal("magic not recognized")
	}
	if isEncrypted(plain) {
		t.Fatal("plaintext misdetected as encrypted")
	}

	got, err := decrypt(blob, "pw-123")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("roundtrip mismatch: %q", got)
	}

	if _, err := decrypt(blob, "wrong"); err == nil {
		t.Fatal("wrong password must fail authentication")
	}
}

func TestMaybeDecryptTempRewritesFile(t *testing.T) {
	plain := []byte("Inhalt nach Entschluesselung")
	blob := encryptBlob(t, plain, "pw-123")
	path := filepath.Join(t.TempDir(), "enc.bin")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}

	got, cleanup, err := maybeDecryptTemp(path, "pw-123")
	if err != nil {
		t.Fatalf("maybeDecryptTemp: %v", err)
	}
	defer cleanup()
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, plain) {
		t.Fatalf("file not rewritten: %q", data)
	}
}

func TestMaybeDecryptTempMissingPassword(t *testing.T) {
	blob := encryptBlob(t, []byte("x"), "pw")
	path := filepath.Join(t.TempDir(), "enc.bin")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := maybeDecryptTemp(path, ""); err == nil {
		t.Fatal("encrypted source without password must fail")
	}
}
