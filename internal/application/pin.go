package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/argon2"
)

// AdminCreatedMarker is stored instead of a PIN hash for reservations made by an
// administrator. It never matches a supplied PIN.
const AdminCreatedMarker = "admin-created"

var (
	// ErrInvalidPINHash reports a stored hash that is not a well formed argon2id string.
	ErrInvalidPINHash = errors.New("invalid pin hash format")
	// ErrIncompatiblePINVersion reports a hash produced by another argon2 version.
	ErrIncompatiblePINVersion = errors.New("incompatible pin hash version")

	ownerPINPattern = regexp.MustCompile(`^\d{4}$`)
)

// Argon2idParams tunes owner PIN hashing. Only the cost parameters are encoded
// in the stored hash; salt and key lengths are recovered from the encoded values.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams follows the OWASP minimum for argon2id.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// ValidOwnerPIN reports whether pin has the four digit owner PIN format.
func ValidOwnerPIN(pin string) bool {
	return ownerPINPattern.MatchString(pin)
}

// CreatePINHash hashes pin with a fresh random salt and returns the PHC style
// encoding $argon2id$v=..$m=..,t=..,p=..$salt$hash.
func CreatePINHash(pin string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(pin), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

// VerifyPIN checks pin against a hash from CreatePINHash in constant time. It
// returns ErrInvalidPIN on mismatch and for admin-created reservations.
func VerifyPIN(hashedPIN, pin string) error {
	if hashedPIN == AdminCreatedMarker {
		return ErrInvalidPIN
	}

	parts := strings.Split(hashedPIN, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrInvalidPINHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return fmt.Errorf("%w: version: %w", ErrInvalidPINHash, err)
	}
	if version != argon2.Version {
		return ErrIncompatiblePINVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return fmt.Errorf("%w: parameters: %w", ErrInvalidPINHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %w", ErrInvalidPINHash, err)
	}
	stored, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(stored) == 0 {
		return fmt.Errorf("%w: hash", ErrInvalidPINHash)
	}

	computed := argon2.IDKey([]byte(pin), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(stored)))
	if subtle.ConstantTimeCompare(stored, computed) != 1 {
		return ErrInvalidPIN
	}
	return nil
}
