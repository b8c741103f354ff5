// Package pragma implements the PRAGMA dispatch and URI query-parameter
// configuration surface (spec §4.5): the textual settings an embedder hands
// in ahead of a cipher.State existing at all — cipher=, key=, hexkey=, and
// every cipher-specific tunable, accumulated across the three precedence
// tiers (compile-time default < global table < per-connection table) before
// a Resolve call turns them into a keyed cipher.
package pragma

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
)

// Settings accumulates the configuration surface for one connection,
// whether built from a single URI query string at open time or from a
// sequence of individual PRAGMA statements.
type Settings struct {
	CipherName string

	Key     string
	HexKey  string
	TextKey string

	CipherSalt string

	Rekey    string
	HexRekey string

	MemorySecurity string

	// Overrides holds every recognized cipher-tunable parameter by its
	// possibly scope-prefixed name (e.g. "kdf_iter", "default:hmac_use"),
	// applied against the resolved cipher's parameter table in Resolve.
	Overrides map[string]int64
}

// NewSettings returns an empty Settings ready for Apply/ApplyURIQuery calls.
func NewSettings() *Settings {
	return &Settings{Overrides: make(map[string]int64)}
}

// ApplyURIQuery parses a database URI's query string and applies every
// recognized parameter. Unknown parameter names are treated as cipher
// tunables and validated as integers; a non-integer value for an unknown
// name is reported as invalid rather than silently ignored.
func (s *Settings) ApplyURIQuery(rawQuery string) error {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return apperrors.NewParamInvalid("uri", rawQuery, "malformed query string")
	}
	for name, vs := range values {
		if len(vs) == 0 {
			continue
		}
		if err := s.Apply(name, vs[0]); err != nil {
			return err
		}
	}
	return nil
}

// Apply sets a single PRAGMA-or-URI-style name=value pair.
func (s *Settings) Apply(name, value string) error {
	switch strings.ToLower(name) {
	case "cipher":
		s.CipherName = value
	case "key":
		s.Key = value
	case "hexkey":
		if !isEvenHex(value) {
			return apperrors.NewParamInvalid("hexkey", value, "must be an even-length hex string")
		}
		s.HexKey = value
	case "textkey":
		s.TextKey = value
	case "cipher_salt":
		if len(value) != 32 || !isEvenHex(value) {
			return apperrors.NewParamInvalid("cipher_salt", value, "must be 32 hex characters (16 bytes)")
		}
		s.CipherSalt = value
	case "rekey":
		s.Rekey = value
	case "hexrekey":
		if !isEvenHex(value) {
			return apperrors.NewParamInvalid("hexrekey", value, "must be an even-length hex string")
		}
		s.HexRekey = value
	case "memory_security":
		if !validMemorySecurity(value) {
			return apperrors.NewParamInvalid("memory_security", value, "must be one of none,fill,lock,0,1,2")
		}
		s.MemorySecurity = value
	default:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return apperrors.NewParamInvalid(name, value, "must be an integer")
		}
		s.Overrides[name] = n
	}
	return nil
}

func isEvenHex(v string) bool {
	if len(v)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(v)
	return err == nil
}

func validMemorySecurity(v string) bool {
	switch v {
	case "none", "fill", "lock", "0", "1", "2":
		return true
	default:
		return false
	}
}

// effectiveKey resolves the single password string GenerateKey should use
// for either the initial key (rekeying=false) or the rekey target
// (rekeying=true), following the engine's precedence: a raw hex key (the
// "x'<hex>'" bypass form most codecs only honor for SQLCipher-compatible
// ciphers) beats an explicit textkey, which beats the plain key parameter.
func (s *Settings) effectiveKey(rekeying bool) string {
	if rekeying {
		if s.HexRekey != "" {
			return "x'" + s.HexRekey + "'"
		}
		return s.Rekey
	}
	if s.HexKey != "" {
		return "x'" + s.HexKey + "'"
	}
	if s.TextKey != "" {
		return s.TextKey
	}
	return s.Key
}
