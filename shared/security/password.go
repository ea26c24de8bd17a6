package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 100

	saltLength = 16
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters long", MaxPasswordLength)
	ErrInvalidSalt      = errors.New("invalid password salt")
)

// ValidatePassword applies the length policy to the trimmed password.
func ValidatePassword(password string) error {
	n := len([]rune(strings.TrimSpace(password)))
	if n < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if n > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	return nil
}

// PasswordHasher derives argon2id hashes from a password and a per-user salt.
type PasswordHasher struct {
	config argon2.Config
}

// HasherConfig holds the argon2id cost parameters.
type HasherConfig struct {
	MemoryCost  uint32 `env:"MEMORY_KIB"  envDefault:"65536"`
	TimeCost    uint32 `env:"TIME_COST"   envDefault:"3"`
	Parallelism uint8  `env:"PARALLELISM" envDefault:"4"`
}

// NewPasswordHasher creates a PasswordHasher with the given cost parameters.
func NewPasswordHasher(cfg HasherConfig) *PasswordHasher {
	config := argon2.DefaultConfig()
	if cfg.MemoryCost > 0 {
		config.MemoryCost = cfg.MemoryCost
	}
	if cfg.TimeCost > 0 {
		config.TimeCost = cfg.TimeCost
	}
	if cfg.Parallelism > 0 {
		config.Parallelism = cfg.Parallelism
	}
	config.SaltLength = saltLength

	return &PasswordHasher{config: config}
}

// GenerateSalt returns a new random base64 encoded salt.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	return base64.RawStdEncoding.EncodeToString(salt), nil
}

// Hash returns the encoded argon2id hash of password under salt.
func (h *PasswordHasher) Hash(password, salt string) (string, error) {
	saltBytes, err := decodeSalt(salt)
	if err != nil {
		return "", err
	}

	raw, err := h.config.Hash([]byte(password), saltBytes)
	if err != nil {
		return "", err
	}

	return string(raw.Encode()), nil
}

// Verify recomputes the hash of password under salt, using the cost parameters
// stored in encodedHash, and compares it in constant time.
func (h *PasswordHasher) Verify(password, salt, encodedHash string) (bool, error) {
	saltBytes, err := decodeSalt(salt)
	if err != nil {
		return false, err
	}

	stored, err := argon2.Decode([]byte(encodedHash))
	if err != nil {
		return false, err
	}

	computed, err := stored.Config.Hash([]byte(password), saltBytes)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(computed.Hash, stored.Hash) == 1, nil
}

func decodeSalt(salt string) ([]byte, error) {
	if salt == "" {
		return nil, ErrInvalidSalt
	}

	b, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil || len(b) < saltLength {
		return nil, ErrInvalidSalt
	}

	return b, nil
}
