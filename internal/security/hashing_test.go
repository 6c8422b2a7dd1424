package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("Secr3tPass!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if strings.Contains(hash, "Secr3tPass!") {
		t.Fatal("digest must not contain the plaintext")
	}
	if !h.Verify("Secr3tPass!", hash) {
		t.Fatal("Verify with the right password should succeed")
	}
}

func TestHasher_VerifyWrongPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, _ := h.Hash("Secr3tPass!")
	if h.Verify("wrong", hash) {
		t.Fatal("Verify with wrong password should fail")
	}
}

func TestHasher_SaltedDigests(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("two digests of the same password should differ (salt)")
	}
}

func TestHasher_VerifyMalformedDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if h.Verify("anything", "not-a-bcrypt-hash") {
		t.Fatal("malformed digest should not verify")
	}
	if h.Verify("anything", "") {
		t.Fatal("empty digest should not verify")
	}
}

func TestHasher_EmptyPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if _, err := h.Hash(""); err != ErrEmptyPassword {
		t.Fatalf("Hash(\"\") err = %v, want ErrEmptyPassword", err)
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost != bcrypt.DefaultCost {
		t.Errorf("zero cost should select DefaultCost, got %d", h0.Cost)
	}
	hLow := NewHasher(2)
	if hLow.Cost != bcrypt.MinCost {
		t.Errorf("cost below MinCost should clamp, got %d", hLow.Cost)
	}
	hHigh := NewHasher(99)
	if hHigh.Cost != bcrypt.MaxCost {
		t.Errorf("cost above MaxCost should clamp, got %d", hHigh.Cost)
	}
}
