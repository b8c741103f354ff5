package cipher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/poly1305"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
	"github.com/pagecrypt/sqlitecrypt/internal/logging"
)

const (
	chacha20PageNonceLen = 16
	chacha20TagLen       = 16
	chacha20Reserved     = chacha20PageNonceLen + chacha20TagLen

	chacha20DefaultKDFIter = 64007
	chacha20LegacyKDFIter  = 12345
	chacha20LegacyPageSize = 4096
)

// ChaCha20Poly1305Descriptor registers the ChaCha20-Poly1305 AEAD page
// cipher: PBKDF2-HMAC-SHA256 key derivation, a per-page one-time-key block
// grounded on the AEAD_CHACHA20_POLY1305 construction, reserved_bytes=32.
type ChaCha20Poly1305Descriptor struct{}

func (d *ChaCha20Poly1305Descriptor) Name() string { return "chacha20" }

func (d *ChaCha20Poly1305Descriptor) Allocate() State {
	return &chacha20State{kdfIter: chacha20DefaultKDFIter}
}

func (d *ChaCha20Poly1305Descriptor) DefaultParams() []Param {
	return []Param{
		{Name: "kdf_iter", Current: chacha20DefaultKDFIter, Default: chacha20DefaultKDFIter, Min: 1, Max: 1<<31 - 1},
		{Name: "legacy", Current: 0, Default: 0, Min: 0, Max: 1},
	}
}

type chacha20State struct {
	key     []byte // 32-byte derived key
	salt    [16]byte
	legacy  bool
	kdfIter int64
	dbName  string // fileHandle passed to GenerateKey, for logging only
}

func (s *chacha20State) Clone() State {
	c := &chacha20State{legacy: s.legacy, kdfIter: s.kdfIter, salt: s.salt, dbName: s.dbName}
	c.key = append([]byte(nil), s.key...)
	return c
}

func (s *chacha20State) LegacyFlag() bool { return s.legacy }

func (s *chacha20State) PageSize() int {
	if s.legacy {
		return chacha20LegacyPageSize
	}
	return 0
}

func (s *chacha20State) ReservedBytes() int { return chacha20Reserved }

// PageOneOffset implements the resolved open question: legacy ChaCha20
// leaves page 1 unencrypted from byte 0 (same plaintext region as
// SQLCipher's default), while non-legacy mode reserves a 24-byte region
// (16-byte key-salt plus 8 bytes of alignment padding).
func (s *chacha20State) PageOneOffset() int {
	if s.legacy {
		return 0
	}
	return 24
}

func (s *chacha20State) Salt() [16]byte { return s.salt }

func (s *chacha20State) Configure(params *Table) error {
	if params == nil {
		return nil
	}
	if v, err := params.Get(ScopeCurrent, "legacy"); err == nil {
		s.legacy = v != 0
	}
	if s.legacy {
		s.kdfIter = chacha20LegacyKDFIter
		return nil
	}
	if v, err := params.Get(ScopeCurrent, "kdf_iter"); err == nil {
		s.kdfIter = v
	}
	return nil
}

func (s *chacha20State) GenerateKey(fileHandle, password string, rekey bool, salt *[16]byte) error {
	if password == "" {
		return apperrors.NewMisuse("generate_key", "empty password")
	}
	s.dbName = fileHandle
	if s.kdfIter == 0 {
		s.kdfIter = chacha20DefaultKDFIter
	}
	if salt != nil {
		s.salt = *salt
	} else {
		if _, err := rand.Read(s.salt[:]); err != nil {
			return err
		}
	}
	key, err := deriveKey("sha256", []byte(password), s.salt[:], int(s.kdfIter), 32)
	if err != nil {
		return err
	}
	s.key = key
	return nil
}

// onetimeKeyBlock generates the 64-byte ChaCha20 keystream block at the
// page's base counter and returns its first 32 bytes (the Poly1305 key)
// together with a cipher instance already positioned to continue
// keystream generation at counter+1 for the page body.
func (s *chacha20State) onetimeKeyBlock(pageNonce []byte, pageNo uint32) (polyKey []byte, body *chacha20.Cipher, err error) {
	nonce12 := pageNonce[:12]
	ctrSeed := binary.LittleEndian.Uint32(pageNonce[12:16])
	baseCounter := ctrSeed ^ pageNo

	c, err := chacha20.NewUnauthenticatedCipher(s.key, nonce12)
	if err != nil {
		return nil, nil, err
	}
	c.SetCounter(baseCounter)

	var block0 [64]byte
	c.XORKeyStream(block0[:], block0[:])
	// c's internal counter has now advanced to baseCounter+1, exactly
	// where the page-body keystream must start.
	return append([]byte(nil), block0[:32]...), c, nil
}

func (s *chacha20State) EncryptPage(pageNo uint32, buf []byte, reserved int) error {
	if s.key == nil {
		return apperrors.NewMisuse("encrypt_page", "cipher not keyed")
	}
	if reserved < chacha20Reserved {
		return apperrors.NewMisuse("encrypt_page", "reserved bytes too small for chacha20poly1305 trailer")
	}
	body := pageBody(pageNo, buf, s.PageOneOffset(), reserved)
	tr := trailer(buf, reserved)
	nonce := tr[:chacha20PageNonceLen]
	tag := tr[chacha20PageNonceLen : chacha20PageNonceLen+chacha20TagLen]

	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	polyKey, stream, err := s.onetimeKeyBlock(nonce, pageNo)
	if err != nil {
		return err
	}
	stream.XORKeyStream(body, body)

	var key32 [32]byte
	copy(key32[:], polyKey)
	var sum [16]byte
	poly1305.Sum(&sum, append(append([]byte(nil), body...), nonce...), &key32)
	copy(tag, sum[:])

	if pageNo == 1 && !s.legacy {
		writePageOneSalt(buf, s.PageOneOffset(), s.salt)
	}
	return nil
}

func (s *chacha20State) DecryptPage(pageNo uint32, buf []byte, reserved int, verifyMAC bool) error {
	if s.key == nil {
		return apperrors.NewMisuse("decrypt_page", "cipher not keyed")
	}
	if reserved < chacha20Reserved {
		return apperrors.NewCorrupt(pageNo, "reserved bytes too small for chacha20poly1305 trailer")
	}
	body := pageBody(pageNo, buf, s.PageOneOffset(), reserved)
	tr := trailer(buf, reserved)
	nonce := tr[:chacha20PageNonceLen]
	tag := tr[chacha20PageNonceLen : chacha20PageNonceLen+chacha20TagLen]

	polyKey, stream, err := s.onetimeKeyBlock(nonce, pageNo)
	if err != nil {
		return err
	}

	if verifyMAC {
		var key32 [32]byte
		copy(key32[:], polyKey)
		var sum [16]byte
		poly1305.Sum(&sum, append(append([]byte(nil), body...), nonce...), &key32)
		if subtle.ConstantTimeCompare(sum[:], tag) != 1 {
			logging.MACFailure(s.dbName, pageNo, "chacha20-poly1305 tag mismatch")
			if pageNo == 1 {
				return apperrors.NewNotADB("chacha20-poly1305 tag mismatch on page 1")
			}
			return apperrors.NewCorrupt(pageNo, "chacha20-poly1305 tag mismatch")
		}
	}

	stream.XORKeyStream(body, body)

	if pageNo == 1 && !s.legacy {
		restorePageOneMagic(buf, s.PageOneOffset())
	}
	return nil
}

func (s *chacha20State) Free() {
	zero(s.key)
	s.key = nil
}
