package crypt

import (
	"errors"
	"strings"
	"testing"
)

func TestEncryptRoundTrip(t *testing.T) {
	c, err := New("s3cret")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	plain := `{"p":"+14165550100","c":1700000000000}`
	token, err := c.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if strings.Contains(token, "4165550100") {
		t.Fatalf("token leaks plaintext: %s", token)
	}
	got, err := c.Decrypt(token)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != plain {
		t.Fatalf("expected %s, got %s", plain, got)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	c, _ := New("s3cret")
	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	if a == b {
		t.Fatalf("expected distinct ciphertexts")
	}
}

func TestDecryptRejectsBadInput(t *testing.T) {
	c, _ := New("s3cret")
	other, _ := New("different")
	token, _ := other.Encrypt("hello")

	for name, in := range map[string]string{
		"empty":      "",
		"not base64": "***",
		"short":      "AAAA",
		"wrong key":  token,
	} {
		if _, err := c.Decrypt(in); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}
