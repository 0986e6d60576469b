package authkit

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// Hashes use the passlib modular-crypt layout so rows written by earlier deployments verify unchanged:
// $pbkdf2-sha256$<rounds>$<adapted base64 salt>$<adapted base64 checksum>
const (
	pbkdf2Identifier      = "pbkdf2-sha256"
	DefaultPasswordRounds = 29000
	passwordSaltSize      = 16
	passwordKeySize       = 32
)

// ErrMalformedPasswordHash indicates a stored hash that cannot be parsed.
var ErrMalformedPasswordHash = errors.New("password.malformed_hash")

// PasswordHasher derives and verifies salted PBKDF2-HMAC-SHA256 password hashes.
type PasswordHasher struct {
	rounds int
	random io.Reader

	dummyOnce sync.Once
	dummyHash string
}

// NewPasswordHasher constructs a hasher using the default round count.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{rounds: DefaultPasswordRounds, random: rand.Reader}
}

// Hash derives a new hash with a fresh random salt.
func (hasher *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, passwordSaltSize)
	if _, err := io.ReadFull(hasher.random, salt); err != nil {
		return "", fmt.Errorf("password.hash.salt: %w", err)
	}
	checksum := pbkdf2.Key([]byte(password), salt, hasher.rounds, passwordKeySize, sha256.New)
	return fmt.Sprintf("$%s$%d$%s$%s", pbkdf2Identifier, hasher.rounds, encodeAdaptedBase64(salt), encodeAdaptedBase64(checksum)), nil
}

// Verify reports whether password matches the encoded hash, comparing in constant time.
func (hasher *PasswordHasher) Verify(password string, encoded string) (bool, error) {
	rounds, salt, checksum, err := parsePasswordHash(encoded)
	if err != nil {
		return false, err
	}
	derived := pbkdf2.Key([]byte(password), salt, rounds, len(checksum), sha256.New)
	return subtle.ConstantTimeCompare(derived, checksum) == 1, nil
}

// VerifyUnknown burns the same work as Verify so that unknown usernames are not distinguishable by latency.
func (hasher *PasswordHasher) VerifyUnknown(password string) {
	hasher.dummyOnce.Do(func() {
		hasher.dummyHash, _ = hasher.Hash("unknown-user-placeholder")
	})
	if hasher.dummyHash == "" {
		return
	}
	_, _ = hasher.Verify(password, hasher.dummyHash)
}

func parsePasswordHash(encoded string) (int, []byte, []byte, error) {
	segments := strings.Split(encoded, "$")
	if len(segments) != 5 || segments[0] != "" || segments[1] != pbkdf2Identifier {
		return 0, nil, nil, ErrMalformedPasswordHash
	}
	rounds, roundsErr := strconv.Atoi(segments[2])
	if roundsErr != nil || rounds <= 0 {
		return 0, nil, nil, ErrMalformedPasswordHash
	}
	salt, saltErr := decodeAdaptedBase64(segments[3])
	if saltErr != nil {
		return 0, nil, nil, ErrMalformedPasswordHash
	}
	checksum, checksumErr := decodeAdaptedBase64(segments[4])
	if checksumErr != nil || len(checksum) == 0 {
		return 0, nil, nil, ErrMalformedPasswordHash
	}
	return rounds, salt, checksum, nil
}

// Adapted base64 is unpadded standard base64 with '+' replaced by '.'.
func encodeAdaptedBase64(raw []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(raw), "+", ".")
}

func decodeAdaptedBase64(text string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(text, ".", "+"))
}
