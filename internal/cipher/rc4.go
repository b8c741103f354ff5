package cipher

import (
	"crypto/rc4"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
)

// RC4Descriptor registers the legacy RC4 page cipher: no KDF, no MAC, the
// password used directly as the stream-cipher key. Present only for
// read-compatibility with databases written by older tooling; never the
// default cipher.
type RC4Descriptor struct{}

func (d *RC4Descriptor) Name() string { return "rc4" }

func (d *RC4Descriptor) Allocate() State { return &rc4State{} }

func (d *RC4Descriptor) DefaultParams() []Param {
	return []Param{
		{Name: "legacy", Current: 1, Default: 1, Min: 1, Max: 1},
	}
}

type rc4State struct {
	key []byte
}

func (s *rc4State) Clone() State {
	return &rc4State{key: append([]byte(nil), s.key...)}
}

func (s *rc4State) LegacyFlag() bool              { return true }
func (s *rc4State) PageSize() int                 { return 0 }
func (s *rc4State) ReservedBytes() int            { return 0 }
func (s *rc4State) PageOneOffset() int            { return 16 }
func (s *rc4State) Salt() [16]byte                { return [16]byte{} }
func (s *rc4State) Configure(params *Table) error { return nil }

func (s *rc4State) GenerateKey(fileHandle, password string, rekey bool, salt *[16]byte) error {
	if password == "" {
		return apperrors.NewMisuse("generate_key", "empty key")
	}
	s.key = []byte(password)
	return nil
}

// perPageCipher re-keys RC4 per page by appending the page number to the
// key, the historical mitigation against reusing one keystream across the
// whole file.
func (s *rc4State) perPageCipher(pageNo uint32) (*rc4.Cipher, error) {
	var pn [4]byte
	pn[0] = byte(pageNo)
	pn[1] = byte(pageNo >> 8)
	pn[2] = byte(pageNo >> 16)
	pn[3] = byte(pageNo >> 24)
	key := append(append([]byte(nil), s.key...), pn[:]...)
	return rc4.NewCipher(key)
}

func (s *rc4State) EncryptPage(pageNo uint32, buf []byte, reserved int) error {
	if s.key == nil {
		return apperrors.NewMisuse("encrypt_page", "cipher not keyed")
	}
	body := pageBody(pageNo, buf, s.PageOneOffset(), reserved)
	if len(body) == 0 {
		return nil
	}
	c, err := s.perPageCipher(pageNo)
	if err != nil {
		return err
	}
	c.XORKeyStream(body, body)
	return nil
}

func (s *rc4State) DecryptPage(pageNo uint32, buf []byte, reserved int, verifyMAC bool) error {
	if s.key == nil {
		return apperrors.NewMisuse("decrypt_page", "cipher not keyed")
	}
	body := pageBody(pageNo, buf, s.PageOneOffset(), reserved)
	if len(body) == 0 {
		return nil
	}
	c, err := s.perPageCipher(pageNo)
	if err != nil {
		return err
	}
	c.XORKeyStream(body, body)
	return nil
}

func (s *rc4State) Free() {
	zero(s.key)
	s.key = nil
}
