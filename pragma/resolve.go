package pragma

import (
	"encoding/hex"

	"github.com/pagecrypt/sqlitecrypt/internal/cipher"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
)

// Resolve turns accumulated Settings into a keyed cipher.State, looking up
// the named cipher (or the registry's default) and cloning its parameter
// table for this connection before applying any overrides and deriving the
// key. Returns a nil state and no error when no key was ever provided —
// the caller should treat the database as unencrypted.
//
// fileHandle identifies the database for ciphers whose GenerateKey wants it
// for logging/diagnostics; rekeying selects whether the rekey-side key
// (Rekey/HexRekey) is resolved instead of the initial one. existingSalt is
// the 16-byte salt the caller already read back from an existing file's
// page 1, used when no explicit cipher_salt= override is set; pass nil
// when there is no file to read back from (a brand-new database, or a
// rekey, which always derives a fresh salt for its new write cipher).
func Resolve(registry *cipher.Registry, settings *Settings, fileHandle string, rekeying bool, existingSalt *[16]byte) (cipher.State, error) {
	password := settings.effectiveKey(rekeying)
	if password == "" {
		return nil, nil
	}

	var (
		desc  cipher.Descriptor
		table *cipher.Table
		err   error
	)
	if settings.CipherName != "" {
		desc, table, err = registry.Lookup(settings.CipherName)
	} else {
		desc, table, err = registry.Default()
	}
	if err != nil {
		return nil, err
	}

	connTable := table.Clone()
	for name, value := range settings.Overrides {
		if err := connTable.SetByPrefixedName(name, value); err != nil {
			return nil, err
		}
	}

	state := desc.Allocate()
	if err := state.Configure(connTable); err != nil {
		return nil, err
	}

	salt, err := parseSalt(settings.CipherSalt)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		salt = existingSalt
	}

	if err := state.GenerateKey(fileHandle, password, rekeying, salt); err != nil {
		return nil, err
	}
	return state, nil
}

func parseSalt(hexSalt string) (*[16]byte, error) {
	if hexSalt == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(hexSalt)
	if err != nil || len(raw) != 16 {
		return nil, apperrors.NewParamInvalid("cipher_salt", hexSalt, "must decode to exactly 16 bytes")
	}
	var salt [16]byte
	copy(salt[:], raw)
	return &salt, nil
}
