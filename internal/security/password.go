package security

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrConfiguration = errors.New("invalid password hashing configuration")
)

type HashAlgorithm string

const (
	HashArgon2id HashAlgorithm = "argon2id"
	HashArgon2i  HashAlgorithm = "argon2i"
	HashBcrypt   HashAlgorithm = "bcrypt"
)

const (
	argonVersion        = argon2.Version
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	// Limits on argon2 parameters, both for new hashes and for stored ones
	// read back during verification.
	maxArgonMemory   uint32 = 4 * 1024 * 1024
	maxArgonTimeCost uint32 = 64
	minArgonSaltLen         = 8
	minArgonKeyLen          = 16
	maxArgonKeyLen          = 64
)

// PasswordConfig carries the work factor for new hashes. MemoryCost is in KiB.
// TimeCost and Threads only apply to argon2; Cost only applies to bcrypt.
type PasswordConfig struct {
	Algorithm  HashAlgorithm
	MemoryCost uint32
	TimeCost   uint32
	Threads    uint8
	Cost       int
}

func (c PasswordConfig) Validate() error {
	switch c.Algorithm {
	case HashArgon2id, HashArgon2i:
		if c.TimeCost < 1 || c.TimeCost > maxArgonTimeCost {
			return fmt.Errorf("%w: time cost must be between 1 and %d", ErrConfiguration, maxArgonTimeCost)
		}
		if c.Threads < 1 {
			return fmt.Errorf("%w: threads must be >= 1", ErrConfiguration)
		}
		if c.MemoryCost < 8*uint32(c.Threads) {
			return fmt.Errorf("%w: memory cost must be >= 8 KiB per thread", ErrConfiguration)
		}
		if c.MemoryCost > maxArgonMemory {
			return fmt.Errorf("%w: memory cost must be <= %d KiB", ErrConfiguration, maxArgonMemory)
		}
	case HashBcrypt:
		if c.Cost < bcrypt.MinCost || c.Cost > bcrypt.MaxCost {
			return fmt.Errorf("%w: bcrypt cost must be between %d and %d", ErrConfiguration, bcrypt.MinCost, bcrypt.MaxCost)
		}
	case "":
		return fmt.Errorf("%w: hash algorithm is required", ErrConfiguration)
	default:
		return fmt.Errorf("%w: unsupported hash algorithm %q", ErrConfiguration, c.Algorithm)
	}
	return nil
}

// PasswordHasher derives and verifies password secrets. It holds no mutable
// state and is safe for concurrent use.
type PasswordHasher struct {
	cfg PasswordConfig
}

func NewPasswordHasher(cfg PasswordConfig) (*PasswordHasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PasswordHasher{cfg: cfg}, nil
}

func (h *PasswordHasher) Algorithm() HashAlgorithm { return h.cfg.Algorithm }

// HashPassword returns a self-describing hash of the password. The plaintext
// is first reduced to base64(sha384(password)) so arbitrarily long inputs
// become fixed-size material below bcrypt's 72-byte limit.
func (h *PasswordHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	if err := h.cfg.Validate(); err != nil {
		return "", err
	}
	material := prehash(password)

	switch h.cfg.Algorithm {
	case HashArgon2id, HashArgon2i:
		salt := make([]byte, argonSaltLen)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("read salt: %w", err)
		}
		key := deriveArgon(h.cfg.Algorithm, material, salt, h.cfg.TimeCost, h.cfg.MemoryCost, h.cfg.Threads, argonKeyLen)
		return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
			h.cfg.Algorithm, argonVersion,
			h.cfg.MemoryCost, h.cfg.TimeCost, h.cfg.Threads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key)), nil
	default:
		out, err := bcrypt.GenerateFromPassword(material, h.cfg.Cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(out), nil
	}
}

// VerifyPassword reports whether password matches encoded. The algorithm is
// taken from the hash itself, so hashes produced under an older configuration
// keep verifying. Empty or malformed hashes never match.
func (h *PasswordHasher) VerifyPassword(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}
	material := prehash(password)

	if isBcryptHash(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), material) == nil
	}

	parsed, err := decodeArgonHash(encoded)
	if err != nil {
		return false
	}
	expectedLen := len(parsed.key)
	if expectedLen == 0 || uint64(expectedLen) > uint64(math.MaxUint32) {
		return false
	}
	// #nosec G115 -- bounded by explicit MaxUint32 check above.
	actual := deriveArgon(parsed.algorithm, material, parsed.salt, parsed.timeCost, parsed.memory, parsed.threads, uint32(expectedLen))
	return subtle.ConstantTimeCompare(actual, parsed.key) == 1
}

// NeedsRehash reports whether encoded was produced with a different algorithm
// or work factor than the current configuration.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	if isBcryptHash(encoded) {
		if h.cfg.Algorithm != HashBcrypt {
			return true
		}
		cost, err := bcrypt.Cost([]byte(encoded))
		if err != nil {
			return true
		}
		return cost != h.cfg.Cost
	}
	parsed, err := decodeArgonHash(encoded)
	if err != nil {
		return true
	}
	return parsed.algorithm != h.cfg.Algorithm ||
		parsed.memory != h.cfg.MemoryCost ||
		parsed.timeCost != h.cfg.TimeCost ||
		parsed.threads != h.cfg.Threads ||
		len(parsed.key) != int(argonKeyLen)
}

func prehash(password string) []byte {
	sum := sha512.Sum384([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func deriveArgon(alg HashAlgorithm, material, salt []byte, timeCost, memory uint32, threads uint8, keyLen uint32) []byte {
	if alg == HashArgon2i {
		return argon2.Key(material, salt, timeCost, memory, threads, keyLen)
	}
	return argon2.IDKey(material, salt, timeCost, memory, threads, keyLen)
}

func isBcryptHash(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

type argonHash struct {
	algorithm HashAlgorithm
	memory    uint32
	timeCost  uint32
	threads   uint8
	salt      []byte
	key       []byte
}

func decodeArgonHash(encoded string) (*argonHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("invalid password hash format")
	}
	alg := HashAlgorithm(parts[1])
	if alg != HashArgon2id && alg != HashArgon2i {
		return nil, fmt.Errorf("unsupported password hash algorithm")
	}
	if parts[2] != fmt.Sprintf("v=%d", argonVersion) {
		return nil, fmt.Errorf("unsupported argon2 version")
	}
	out := &argonHash{algorithm: alg}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.memory, &out.timeCost, &out.threads); err != nil {
		return nil, fmt.Errorf("invalid hash params")
	}
	if out.timeCost < 1 || out.timeCost > maxArgonTimeCost || out.threads < 1 {
		return nil, fmt.Errorf("invalid hash params")
	}
	if out.memory < 8*uint32(out.threads) || out.memory > maxArgonMemory {
		return nil, fmt.Errorf("invalid hash params")
	}
	var err error
	out.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(out.salt) < minArgonSaltLen {
		return nil, fmt.Errorf("invalid hash salt")
	}
	out.key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(out.key) < minArgonKeyLen || len(out.key) > maxArgonKeyLen {
		return nil, fmt.Errorf("invalid hash payload")
	}
	return out, nil
}
