package cipher

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
)

// hashNew resolves a KDF/HMAC algorithm name to its constructor. Names
// match the engine's kdf_algorithm/hmac_algorithm parameter values.
func hashNew(name string) (func() hash.Hash, error) {
	switch name {
	case "sha1", "":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	default:
		return nil, apperrors.NewParamInvalid("kdf_algorithm", name, "unsupported hash")
	}
}

// deriveKey runs PBKDF2-HMAC-<algorithm> over password/salt for iter
// iterations, producing keyLen bytes. Grounded on the wechatvfs decryptor's
// deriveKeys, generalized to a selectable hash.
func deriveKey(algorithm string, password, salt []byte, iter, keyLen int) ([]byte, error) {
	h, err := hashNew(algorithm)
	if err != nil {
		return nil, err
	}
	if iter < 1 {
		return nil, apperrors.NewParamInvalid("kdf_iter", "", "must be >= 1")
	}
	return pbkdf2.Key(password, salt, iter, keyLen, h), nil
}

// xorSalt XORs every byte of salt with mask, returning a new slice. Used to
// derive the HMAC subkey's salt from the encryption key's salt.
func xorSalt(salt []byte, mask byte) []byte {
	out := make([]byte, len(salt))
	for i, b := range salt {
		out[i] = b ^ mask
	}
	return out
}
