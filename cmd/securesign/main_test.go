package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLI_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "alice")
	doc := filepath.Join(dir, "invoice.txt")
	if err := os.WriteFile(doc, []byte("invoice-2025"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "keygen", "--out", prefix)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if !strings.Contains(out, "fingerprint:") {
		t.Fatalf("keygen output: %q", out)
	}
	st, err := os.Stat(prefix + ".key.pem")
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("private key perm=%v", st.Mode().Perm())
	}

	fp, err := run(t, "", "fingerprint", prefix+".pub.pem")
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if !strings.Contains(out, strings.TrimSpace(fp)) {
		t.Fatalf("fingerprint %q not in keygen output %q", fp, out)
	}

	sig, err := run(t, "", "sign", "--key", prefix+".key.pem", doc)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig = strings.TrimSpace(sig)

	out, err = run(t, "", "verify", "--pub", prefix+".pub.pem", "--sig", sig, doc)
	if err != nil || !strings.HasPrefix(out, "Valid") {
		t.Fatalf("verify: %q %v", out, err)
	}

	// mismo contenido por stdin
	out, err = run(t, "invoice-2025", "verify", "--pub", prefix+".pub.pem", "--sig", sig, "-")
	if err != nil || !strings.HasPrefix(out, "Valid") {
		t.Fatalf("verify stdin: %q %v", out, err)
	}

	out, err = run(t, "invoice-2026", "verify", "--pub", prefix+".pub.pem", "--sig", sig, "-")
	if !errors.Is(err, errInvalid) || !strings.Contains(out, "SignatureMismatch") {
		t.Fatalf("tampered: %q %v", out, err)
	}
}

func TestCLI_Hash(t *testing.T) {
	const abc = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	out, err := run(t, "abc", "hash", "-")
	if err != nil || strings.TrimSpace(out) != abc {
		t.Fatalf("hash: %q %v", out, err)
	}
	out, err = run(t, "abc", "hash", "--expected", strings.ToUpper(abc), "-")
	if err != nil || strings.TrimSpace(out) != "OK" {
		t.Fatalf("hash expected: %q %v", out, err)
	}
	_, err = run(t, "abd", "hash", "--expected", abc, "-")
	if !errors.Is(err, errInvalid) {
		t.Fatalf("want mismatch, got %v", err)
	}
}

func TestCLI_KeygenRejectsBits(t *testing.T) {
	_, err := run(t, "", "keygen", "--bits", "1024", "--out", filepath.Join(t.TempDir(), "k"))
	if err == nil {
		t.Fatal("1024 bits must be rejected")
	}
}

func TestCLI_SealUnseal(t *testing.T) {
	key, err := run(t, "", "masterkey")
	if err != nil {
		t.Fatalf("masterkey: %v", err)
	}
	t.Setenv("SECRETBOX_MASTER_KEY", strings.TrimSpace(key))

	sealed, err := run(t, "postgres://app:pw@db/securesign\n", "seal", "-")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if strings.Contains(sealed, "pw@db") {
		t.Fatalf("value not sealed: %q", sealed)
	}
	plain, err := run(t, sealed, "unseal", "-")
	if err != nil {
		t.Fatalf("unseal: %v", err)
	}
	if strings.TrimSpace(plain) != "postgres://app:pw@db/securesign" {
		t.Fatalf("unseal=%q", plain)
	}

	t.Setenv("SECRETBOX_MASTER_KEY", "")
	if _, err := run(t, "x", "seal", "-"); err == nil {
		t.Fatal("expected error without master key")
	}
}
