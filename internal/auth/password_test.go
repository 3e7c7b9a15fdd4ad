package auth

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty hash")
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash has unexpected format: %s", hash)
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	h2, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ")
	}
}

func TestCheckPassword_Correct(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	valid, err := CheckPassword("changeme", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !valid {
		t.Fatal("Correct password was rejected")
	}
}

func TestCheckPassword_Wrong(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	valid, err := CheckPassword("wrongpassword", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if valid {
		t.Fatal("Wrong password was accepted")
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	for _, hash := range []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=19456,t=2",
		"$bcrypt$whatever",
	} {
		if _, err := CheckPassword("changeme", hash); err == nil {
			t.Errorf("expected error for malformed hash %q", hash)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if NeedsRehash(hash) {
		t.Error("fresh hash should not need a rehash")
	}

	// Old 64MB-memory hash uses different parameters.
	oldHash := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"
	if !NeedsRehash(oldHash) {
		t.Error("hash with old parameters should need a rehash")
	}
}
