package password

import (
	"strings"
	"testing"
)

func TestHashVerify(t *testing.T) {
	h, err := Hash(Fast, "s3creto!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected PHC %q", h)
	}
	if !Verify("s3creto!", h) {
		t.Fatal("verify failed for correct password")
	}
	if Verify("s3creto", h) {
		t.Fatal("verify accepted wrong password")
	}
	if h2, _ := Hash(Fast, "s3creto!"); h2 == h {
		t.Fatal("salt not random")
	}
	if _, err := Hash(Fast, ""); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestVerify_RejectsMalformed(t *testing.T) {
	for _, phc := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=19$m=1024,t=1,p=1$!!$ZGs",
	} {
		if Verify("x", phc) {
			t.Fatalf("accepted %q", phc)
		}
	}
}

func TestPolicy(t *testing.T) {
	if err := DefaultPolicy.Check("12345"); err == nil {
		t.Fatal("expected too_short")
	}
	if err := DefaultPolicy.Check("123456"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	strict := Policy{MinLength: 8, RequireUpper: true, RequireDigit: true}
	ok, reasons := strict.Validate("abcdefgh")
	if ok || len(reasons) != 2 {
		t.Fatalf("reasons=%v", reasons)
	}
}
