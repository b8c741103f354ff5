package cipher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
	"github.com/pagecrypt/sqlitecrypt/internal/logging"
)

// ASCON-128 AEAD and permutation. No third-party implementation of ASCON
// exists anywhere in the dependency pack, so this codec is implemented
// directly against the ASCON v1.2 permutation definition using only
// encoding/binary and crypto/subtle (see DESIGN.md: this is the one
// codec in this package with no library implementation of its cipher to
// call, and is justified there).

const (
	asconKeyLen   = 16
	asconNonceLen = 16
	asconTagLen   = 16
	asconReserved = asconNonceLen + asconTagLen
	asconRate     = 8 // bytes absorbed/squeezed per permutation round

	asconIV = 0x80400c0600000000

	asconRoundsA = 12
	asconRoundsB = 6

	asconDefaultKDFIter = 64007
)

var asconRoundConstants = [12]uint64{
	0xf0, 0xe1, 0xd2, 0xc3, 0xb4, 0xa5, 0x96, 0x87, 0x78, 0x69, 0x5a, 0x4b,
}

type asconWords struct {
	x0, x1, x2, x3, x4 uint64
}

func asconRotr(x uint64, n uint) uint64 {
	return (x >> n) | (x << (64 - n))
}

// asconRound applies a single ASCON round with the given round constant.
func asconRound(s *asconWords, c uint64) {
	s.x2 ^= c

	s.x0 ^= s.x4
	s.x4 ^= s.x3
	s.x2 ^= s.x1

	t0 := s.x0 ^ (^s.x1 & s.x2)
	t1 := s.x1 ^ (^s.x2 & s.x3)
	t2 := s.x2 ^ (^s.x3 & s.x4)
	t3 := s.x3 ^ (^s.x4 & s.x0)
	t4 := s.x4 ^ (^s.x0 & s.x1)

	t1 ^= t0
	t3 ^= t2
	t0 ^= t4
	t2 = ^t2

	s.x0 = t0 ^ asconRotr(t0, 19) ^ asconRotr(t0, 28)
	s.x1 = t1 ^ asconRotr(t1, 61) ^ asconRotr(t1, 39)
	s.x2 = t2 ^ asconRotr(t2, 1) ^ asconRotr(t2, 6)
	s.x3 = t3 ^ asconRotr(t3, 10) ^ asconRotr(t3, 17)
	s.x4 = t4 ^ asconRotr(t4, 7) ^ asconRotr(t4, 41)
}

func asconPermute(s *asconWords, rounds int) {
	for _, c := range asconRoundConstants[12-rounds:] {
		asconRound(s, c)
	}
}

func asconLoad(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

func asconStore(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }

// asconPad returns the final rate-sized block with buf's remaining bytes
// copied in and a single 0x80 byte appended at position len(buf).
func asconPad(buf []byte) [asconRate]byte {
	var b [asconRate]byte
	copy(b[:], buf)
	b[len(buf)] = 0x80
	return b
}

// asconInit initializes the permutation state for key/nonce and absorbs an
// empty associated-data block, matching the reference construction even
// when there is no associated data to authenticate.
func asconInit(key, nonce []byte) asconWords {
	k0 := asconLoad(key[:8])
	k1 := asconLoad(key[8:16])

	s := asconWords{
		x0: asconIV,
		x1: k0,
		x2: k1,
		x3: asconLoad(nonce[:8]),
		x4: asconLoad(nonce[8:16]),
	}
	asconPermute(&s, asconRoundsA)
	s.x3 ^= k0
	s.x4 ^= k1

	// Absorb the (empty) associated-data block.
	pad := asconPad(nil)
	s.x0 ^= asconLoad(pad[:])
	asconPermute(&s, asconRoundsB)
	s.x4 ^= 1 // domain separation between AD and plaintext phases

	return s
}

func asconFinalize(s *asconWords, key []byte) (tag [asconTagLen]byte) {
	k0 := asconLoad(key[:8])
	k1 := asconLoad(key[8:16])

	s.x1 ^= k0
	s.x2 ^= k1
	asconPermute(s, asconRoundsA)
	s.x3 ^= k0
	s.x4 ^= k1

	asconStore(tag[:8], s.x3)
	asconStore(tag[8:], s.x4)
	return tag
}

// asconEncrypt runs the ASCON-128 AEAD encryption over plaintext in place,
// returning the 16-byte tag. key and nonce must each be 16 bytes.
func asconEncrypt(key, nonce, buf []byte) [asconTagLen]byte {
	s := asconInit(key, nonce)

	n := len(buf)
	off := 0
	for off+asconRate <= n {
		block := buf[off : off+asconRate]
		pt := asconLoad(block)
		ct := s.x0 ^ pt
		asconStore(block, ct)
		s.x0 = ct
		asconPermute(&s, asconRoundsB)
		off += asconRate
	}

	rem := buf[off:]
	pad := asconPad(rem)
	ksBlock := s.x0
	ctTail := make([]byte, asconRate)
	asconStore(ctTail, ksBlock)
	for i := range rem {
		rem[i] = ctTail[i] ^ rem[i]
	}
	s.x0 ^= asconLoad(pad[:])

	return asconFinalize(&s, key)
}

// asconDecrypt is the inverse of asconEncrypt: buf holds ciphertext and is
// transformed in place to plaintext. Returns the expected tag so the caller
// can compare it against the stored one.
func asconDecrypt(key, nonce, buf []byte) [asconTagLen]byte {
	s := asconInit(key, nonce)

	n := len(buf)
	off := 0
	for off+asconRate <= n {
		block := buf[off : off+asconRate]
		ct := asconLoad(block)
		pt := s.x0 ^ ct
		asconStore(block, pt)
		s.x0 = ct
		asconPermute(&s, asconRoundsB)
		off += asconRate
	}

	rem := buf[off:]
	rl := len(rem)
	ksBlock := make([]byte, asconRate)
	asconStore(ksBlock, s.x0)

	ptTail := make([]byte, rl)
	for i := 0; i < rl; i++ {
		ptTail[i] = ksBlock[i] ^ rem[i]
	}

	var padded [asconRate]byte
	copy(padded[:], ptTail)
	padded[rl] = 0x80
	copy(rem, ptTail)
	s.x0 ^= asconLoad(padded[:])

	return asconFinalize(&s, key)
}

// AsconDescriptor registers the ASCON-128 AEAD page cipher: PBKDF2-style
// key derivation keyed by the ASCON permutation itself, a per-page one-time
// key folded from a random nonce and the page number, reserved_bytes=32.
type AsconDescriptor struct{}

func (d *AsconDescriptor) Name() string { return "ascon128" }

func (d *AsconDescriptor) Allocate() State {
	return &asconState{kdfIter: asconDefaultKDFIter}
}

func (d *AsconDescriptor) DefaultParams() []Param {
	return []Param{
		{Name: "kdf_iter", Current: asconDefaultKDFIter, Default: asconDefaultKDFIter, Min: 1, Max: 1<<31 - 1},
	}
}

type asconState struct {
	key     []byte // 16-byte derived key
	salt    [16]byte
	kdfIter int64
	dbName  string // fileHandle passed to GenerateKey, for logging only
}

func (s *asconState) Clone() State {
	c := &asconState{kdfIter: s.kdfIter, salt: s.salt, dbName: s.dbName}
	c.key = append([]byte(nil), s.key...)
	return c
}

func (s *asconState) LegacyFlag() bool     { return false }
func (s *asconState) PageSize() int        { return 0 }
func (s *asconState) ReservedBytes() int   { return asconReserved }
func (s *asconState) PageOneOffset() int   { return 24 }
func (s *asconState) Salt() [16]byte       { return s.salt }

func (s *asconState) Configure(params *Table) error {
	if params == nil {
		return nil
	}
	if v, err := params.Get(ScopeCurrent, "kdf_iter"); err == nil {
		s.kdfIter = v
	}
	return nil
}

// asconHash folds an arbitrary-length message down to a 16-byte digest by
// running it through the permutation as an AD-only absorption followed by a
// final squeeze, giving the per-page one-time key its ASCON-HASH derivation.
func asconHash(parts ...[]byte) [16]byte {
	s := asconWords{x0: asconIV ^ 0x1}
	asconPermute(&s, asconRoundsA)

	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
	}
	for len(buf) >= asconRate {
		s.x0 ^= asconLoad(buf[:asconRate])
		asconPermute(&s, asconRoundsB)
		buf = buf[asconRate:]
	}
	pad := asconPad(buf)
	s.x0 ^= asconLoad(pad[:])
	asconPermute(&s, asconRoundsA)

	var out [16]byte
	asconStore(out[:8], s.x0)
	asconStore(out[8:], s.x1)
	return out
}

func (s *asconState) GenerateKey(fileHandle, password string, rekey bool, salt *[16]byte) error {
	if password == "" {
		return apperrors.NewMisuse("generate_key", "empty password")
	}
	s.dbName = fileHandle
	if s.kdfIter == 0 {
		s.kdfIter = asconDefaultKDFIter
	}
	if salt != nil {
		s.salt = *salt
	} else {
		if _, err := rand.Read(s.salt[:]); err != nil {
			return err
		}
	}

	material := asconHash([]byte(password), s.salt[:])
	key := material[:]
	for i := int64(1); i < s.kdfIter; i++ {
		folded := asconHash(key, s.salt[:])
		key = folded[:]
	}
	s.key = append([]byte(nil), key...)
	return nil
}

// perPageKey folds the nonce and page number into the derived key, matching
// the one-time-key-per-page construction described for this cipher.
func (s *asconState) perPageKey(nonce []byte, pageNo uint32) []byte {
	var pn [4]byte
	binary.BigEndian.PutUint32(pn[:], pageNo)
	digest := asconHash(s.key, nonce, pn[:])
	return digest[:]
}

func (s *asconState) EncryptPage(pageNo uint32, buf []byte, reserved int) error {
	if s.key == nil {
		return apperrors.NewMisuse("encrypt_page", "cipher not keyed")
	}
	if reserved < asconReserved {
		return apperrors.NewMisuse("encrypt_page", "reserved bytes too small for ascon128 trailer")
	}
	body := pageBody(pageNo, buf, s.PageOneOffset(), reserved)
	tr := trailer(buf, reserved)
	nonce := tr[:asconNonceLen]
	tagField := tr[asconNonceLen : asconNonceLen+asconTagLen]

	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	pageKey := s.perPageKey(nonce, pageNo)
	tag := asconEncrypt(pageKey, nonce, body)
	copy(tagField, tag[:])

	if pageNo == 1 {
		writePageOneSalt(buf, s.PageOneOffset(), s.salt)
	}
	return nil
}

func (s *asconState) DecryptPage(pageNo uint32, buf []byte, reserved int, verifyMAC bool) error {
	if s.key == nil {
		return apperrors.NewMisuse("decrypt_page", "cipher not keyed")
	}
	if reserved < asconReserved {
		return apperrors.NewCorrupt(pageNo, "reserved bytes too small for ascon128 trailer")
	}
	body := pageBody(pageNo, buf, s.PageOneOffset(), reserved)
	tr := trailer(buf, reserved)
	nonce := tr[:asconNonceLen]
	tagField := tr[asconNonceLen : asconNonceLen+asconTagLen]

	pageKey := s.perPageKey(nonce, pageNo)
	bodyCopy := append([]byte(nil), body...)
	wantTag := asconDecrypt(pageKey, nonce, bodyCopy)

	if verifyMAC && subtle.ConstantTimeCompare(wantTag[:], tagField) != 1 {
		logging.MACFailure(s.dbName, pageNo, "ascon128 tag mismatch")
		if pageNo == 1 {
			return apperrors.NewNotADB("ascon128 tag mismatch on page 1")
		}
		return apperrors.NewCorrupt(pageNo, "ascon128 tag mismatch")
	}
	copy(body, bodyCopy)

	if pageNo == 1 {
		restorePageOneMagic(buf, s.PageOneOffset())
	}
	return nil
}

func (s *asconState) Free() {
	zero(s.key)
	s.key = nil
}
