// Package cipher implements the page-cipher registry, per-cipher codecs,
// and the parameter tables described in the engine's key-management
// surface: AES-CBC, ChaCha20-Poly1305, SQLCipher-compatible, ASCON-128,
// and legacy RC4.
package cipher

import "github.com/pagecrypt/sqlitecrypt/internal/pager"

// State is the per-database instance of a registered cipher: the opaque
// record returned by a Descriptor's Allocate hook. It carries derived key
// material and whatever per-connection flags the cipher needs, and answers
// the page transform contract directly.
//
// Implementations must not embed a pointer back to a Descriptor; cipher
// polymorphism here is a closed variant set dispatched through this
// interface, not a class hierarchy.
type State interface {
	// Clone returns a deep copy of this state, including key material.
	// Used when promoting a read cipher to a write cipher (or the
	// reverse) on a successful rekey.
	Clone() State

	// LegacyFlag reports whether this cipher instance is running in a
	// legacy compatibility mode (affects page-1 offset and KDF defaults).
	LegacyFlag() bool

	// PageSize returns the page size this cipher mandates, or 0 to
	// follow whatever the database's own page size is.
	PageSize() int

	// ReservedBytes returns the trailing per-page footprint (nonce,
	// tag, IV, HMAC) this cipher instance requires.
	ReservedBytes() int

	// PageOneOffset returns the number of leading bytes on page 1 that
	// must never be encrypted (the key-salt region, or a configured
	// plaintext header).
	PageOneOffset() int

	// Salt returns the 16-byte per-database key-salt in use, or the
	// zero value if the cipher does not use one (legacy AES-CBC, RC4).
	Salt() [16]byte

	// Configure pulls this state's tunables (kdf_iter, hmac_use, and so
	// on) from the given parameter table. Called by pragma.Resolve once
	// per resolution (URI open, PRAGMA key or rekey), before
	// GenerateKey. Ciphers with no tunables no-op.
	Configure(params *Table) error

	// GenerateKey derives (or installs, for raw-key bypass forms)
	// this state's key material from a password string. salt is an
	// optional explicit 16-byte override (from cipher_salt= or an
	// existing file's page-1 salt read back when it is opened or keyed);
	// when it is nil a fresh random salt is generated. rekey indicates
	// this call is happening as part of an in-flight rekey rather than
	// an initial set_key.
	GenerateKey(fileHandle, password string, rekey bool, salt *[16]byte) error

	// EncryptPage transforms buf[:len(buf)-reserved] in place from
	// plaintext to ciphertext for page pageNo, writing any trailer
	// (IV, nonce, tag, HMAC) into buf[len(buf)-reserved:]. pageNo is
	// never 0.
	EncryptPage(pageNo uint32, buf []byte, reserved int) error

	// DecryptPage is the inverse of EncryptPage. When verifyMAC is
	// false, AEAD/HMAC verification is skipped (forensic recovery
	// mode); the call still attempts to decrypt and only returns a
	// format error, never a MAC error.
	DecryptPage(pageNo uint32, buf []byte, reserved int, verifyMAC bool) error

	// Free releases and zeroes any key material held by this state.
	// Safe to call more than once.
	Free()
}

// Descriptor is the process-wide, stateless registration record for a
// named cipher: it knows how to allocate fresh State and what parameters
// it exposes, but holds no per-database data itself.
type Descriptor interface {
	// Name is the cipher's registered name: identifier characters only,
	// at most 63 bytes, matched case-insensitively at lookup time.
	Name() string

	// Allocate returns a fresh, unkeyed State for a new codec.
	Allocate() State

	// DefaultParams returns a template parameter table describing this
	// cipher's tunables (kdf_iter, hmac_use, and so on). The registry
	// deep-copies this template; callers must not retain the slice.
	DefaultParams() []Param
}

// pageBody returns the slice of buf that this cipher transforms: buf
// trimmed of its trailing reserved bytes and, for page 1, its leading
// plaintext offset. It is the one piece of page-1/reserved-bytes
// bookkeeping shared by every codec so no single codec can special-case
// it inconsistently.
func pageBody(pageNo uint32, buf []byte, offset, reserved int) []byte {
	start := 0
	if pageNo == 1 {
		start = offset
	}
	end := len(buf) - reserved
	if end < start {
		end = start
	}
	return buf[start:end]
}

// trailer returns the trailing reserved-bytes region of buf.
func trailer(buf []byte, reserved int) []byte {
	return buf[len(buf)-reserved:]
}

// writePageOneSalt stores salt into page 1's leading plaintext region so
// it survives on disk, zero-padding any alignment bytes beyond the
// 16-byte salt itself (chacha20/ascon's 24-byte offset). Called by
// EncryptPage for ciphers whose PageOneOffset carves out a salt region
// rather than a caller-owned plaintext header.
func writePageOneSalt(buf []byte, offset int, salt [16]byte) {
	copy(buf[0:16], salt[:])
	for i := 16; i < offset; i++ {
		buf[i] = 0
	}
}

// restorePageOneMagic replaces page 1's leading region, which on disk
// holds the cipher's key-salt, with the plaintext SQLite magic header so
// a decrypted read shows the same bytes an unencrypted database would.
func restorePageOneMagic(buf []byte, offset int) {
	copy(buf[0:16], []byte(pager.MagicString))
	for i := 16; i < offset; i++ {
		buf[i] = 0
	}
}
