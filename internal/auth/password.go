// Package auth implements password hashing and bearer tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltLen      = 16

	// Hashes written before the parameterised format: "<hex key>.<salt>",
	// where the salt string itself is the scrypt salt.
	legacyN = 16384
)

type params struct {
	n, r, p int
	salt    []byte
	key     []byte
}

// HashPassword returns scrypt$N$r$p$<salt hex>$<key hex>.
func HashPassword(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(plain), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return fmt.Sprintf("scrypt$%d$%d$%d$%s$%s",
		scryptN, scryptR, scryptP, hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// CheckPassword compares plain against a stored hash in either format.
func CheckPassword(hash, plain string) bool {
	p, err := parseHash(hash)
	if err != nil {
		return false
	}

	key, err := scrypt.Key([]byte(plain), p.salt, p.n, p.r, p.p, len(p.key))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(key, p.key) == 1
}

// NeedsRehash reports whether hash was produced with other parameters
// than the current ones.
func NeedsRehash(hash string) bool {
	p, err := parseHash(hash)
	if err != nil {
		return true
	}
	return !strings.HasPrefix(hash, "scrypt$") ||
		p.n != scryptN || p.r != scryptR || p.p != scryptP || len(p.key) != scryptKeyLen
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// CompareDummy burns the same work as a real check. Login runs it for
// unknown usernames.
func CompareDummy(plain string) {
	dummyOnce.Do(func() {
		dummyHash, _ = HashPassword("dummy-password")
	})
	CheckPassword(dummyHash, plain)
}

func parseHash(hash string) (params, error) {
	if strings.HasPrefix(hash, "scrypt$") {
		parts := strings.Split(hash, "$")
		if len(parts) != 6 {
			return params{}, fmt.Errorf("malformed hash")
		}
		n, errN := strconv.Atoi(parts[1])
		r, errR := strconv.Atoi(parts[2])
		p, errP := strconv.Atoi(parts[3])
		if errN != nil || errR != nil || errP != nil {
			return params{}, fmt.Errorf("malformed hash parameters")
		}
		salt, err := hex.DecodeString(parts[4])
		if err != nil {
			return params{}, fmt.Errorf("malformed salt: %w", err)
		}
		key, err := hex.DecodeString(parts[5])
		if err != nil || len(key) == 0 {
			return params{}, fmt.Errorf("malformed key")
		}
		return params{n: n, r: r, p: p, salt: salt, key: key}, nil
	}

	keyHex, salt, ok := strings.Cut(hash, ".")
	if !ok || salt == "" {
		return params{}, fmt.Errorf("unrecognised hash format")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) == 0 {
		return params{}, fmt.Errorf("malformed legacy key")
	}
	return params{n: legacyN, r: 8, p: 1, salt: []byte(salt), key: key}, nil
}
