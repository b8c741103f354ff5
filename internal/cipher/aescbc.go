package cipher

import (
	"crypto/aes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"hash"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
)

// aesCBCSalt is the fixed 4-byte domain-separation tag mixed into the
// per-page key derivation, historically the literal string "sAlT".
var aesCBCSalt = []byte("sAlT")

// AESCBCDescriptor registers the legacy AES-128-CBC or AES-256-CBC page
// cipher: no KDF, no MAC, a deterministic per-page key and IV derived
// solely from the page number, reserved_bytes=0.
type AESCBCDescriptor struct {
	KeyBits int // 128 or 256
}

func (d *AESCBCDescriptor) Name() string {
	if d.KeyBits == 256 {
		return "aes256cbc"
	}
	return "aes128cbc"
}

func (d *AESCBCDescriptor) Allocate() State {
	logAESFeatures()
	return &aesCBCState{keyBits: d.KeyBits}
}

func (d *AESCBCDescriptor) DefaultParams() []Param {
	return []Param{
		{Name: "legacy", Current: 1, Default: 1, Min: 0, Max: 1},
	}
}

type aesCBCState struct {
	keyBits int
	key     []byte
}

func (s *aesCBCState) Clone() State {
	return &aesCBCState{keyBits: s.keyBits, key: append([]byte(nil), s.key...)}
}

func (s *aesCBCState) LegacyFlag() bool              { return true }
func (s *aesCBCState) PageSize() int                 { return 0 }
func (s *aesCBCState) ReservedBytes() int            { return 0 }
func (s *aesCBCState) PageOneOffset() int            { return 16 }
func (s *aesCBCState) Salt() [16]byte                { return [16]byte{} }
func (s *aesCBCState) Configure(params *Table) error { return nil }

// GenerateKey installs the raw key bytes directly: this legacy cipher has
// no password-based KDF. A password shorter than the required key length
// is zero-padded; longer passwords are truncated, matching the historical
// "raw key material, not a passphrase" contract of this cipher family.
func (s *aesCBCState) GenerateKey(fileHandle, password string, rekey bool, salt *[16]byte) error {
	if password == "" {
		return apperrors.NewMisuse("generate_key", "empty key")
	}
	keyLen := s.keyBits / 8
	key := make([]byte, keyLen)
	copy(key, password)
	s.key = key
	return nil
}

func (s *aesCBCState) newHash() hash.Hash {
	if s.keyBits == 128 {
		return md5.New()
	}
	return sha256.New()
}

func (s *aesCBCState) perPageKey(pageNo uint32) []byte {
	h := s.newHash()
	h.Write(s.key)
	var pn [4]byte
	binary.LittleEndian.PutUint32(pn[:], pageNo)
	h.Write(pn[:])
	h.Write(aesCBCSalt)
	sum := h.Sum(nil)
	return sum[:s.keyBits/8]
}

func (s *aesCBCState) pageIV(pageNo uint32, perPageKey []byte) []byte {
	h := md5.New()
	var pn [4]byte
	binary.LittleEndian.PutUint32(pn[:], pageNo)
	h.Write(pn[:])
	h.Write(perPageKey)
	return h.Sum(nil)
}

func (s *aesCBCState) EncryptPage(pageNo uint32, buf []byte, reserved int) error {
	if s.key == nil {
		return apperrors.NewMisuse("encrypt_page", "cipher not keyed")
	}
	body := pageBody(pageNo, buf, s.PageOneOffset(), reserved)
	if len(body) == 0 {
		return nil
	}
	perPageKey := s.perPageKey(pageNo)
	block, err := aes.NewCipher(perPageKey)
	if err != nil {
		return err
	}
	iv := s.pageIV(pageNo, perPageKey)
	ct := cbcEncryptCTS(block, iv, body)
	copy(body, ct)
	return nil
}

func (s *aesCBCState) DecryptPage(pageNo uint32, buf []byte, reserved int, verifyMAC bool) error {
	if s.key == nil {
		return apperrors.NewMisuse("decrypt_page", "cipher not keyed")
	}
	body := pageBody(pageNo, buf, s.PageOneOffset(), reserved)
	if len(body) == 0 {
		return nil
	}
	perPageKey := s.perPageKey(pageNo)
	block, err := aes.NewCipher(perPageKey)
	if err != nil {
		return err
	}
	iv := s.pageIV(pageNo, perPageKey)
	pt := cbcDecryptCTS(block, iv, body)
	copy(body, pt)
	return nil
}

func (s *aesCBCState) Free() {
	zero(s.key)
	s.key = nil
}
