package cipher

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func newRC4State(t *testing.T) State {
	t.Helper()
	desc := &RC4Descriptor{}
	s := desc.Allocate()
	if err := s.GenerateKey("main", "secret", false, nil); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRC4RoundTrip(t *testing.T) {
	s := newRC4State(t)
	reserved := s.ReservedBytes()
	if reserved != 0 {
		t.Fatalf("expected reserved_bytes=0 for rc4, got %d", reserved)
	}

	for _, pageNo := range []uint32{1, 2, 77} {
		plaintext := make([]byte, 4096)
		rand.Read(plaintext)

		buf := append([]byte(nil), plaintext...)
		if err := s.EncryptPage(pageNo, buf, reserved); err != nil {
			t.Fatalf("pgno=%d: EncryptPage: %v", pageNo, err)
		}
		offset := s.PageOneOffset()
		if pageNo == 1 && !bytes.Equal(buf[:offset], plaintext[:offset]) {
			t.Error("page-1 offset bytes must stay unencrypted")
		}
		if pageNo != 1 && bytes.Equal(buf, plaintext) {
			t.Error("ciphertext should not equal plaintext")
		}

		decBuf := append([]byte(nil), buf...)
		if err := s.DecryptPage(pageNo, decBuf, reserved, true); err != nil {
			t.Fatalf("pgno=%d: DecryptPage: %v", pageNo, err)
		}
		if !bytes.Equal(decBuf, plaintext) {
			t.Errorf("pgno=%d: round trip mismatch", pageNo)
		}
	}
}

func TestRC4DistinctKeystreamPerPage(t *testing.T) {
	s := newRC4State(t)
	reserved := s.ReservedBytes()
	plaintext := bytes.Repeat([]byte{0x5}, 4096)

	buf1 := append([]byte(nil), plaintext...)
	buf2 := append([]byte(nil), plaintext...)
	s.EncryptPage(2, buf1, reserved)
	s.EncryptPage(3, buf2, reserved)

	if bytes.Equal(buf1, buf2) {
		t.Error("different pages must use distinct per-page keystreams")
	}
}

func TestRC4RequiresKey(t *testing.T) {
	desc := &RC4Descriptor{}
	s := desc.Allocate()
	buf := make([]byte, 4096)
	if err := s.EncryptPage(1, buf, s.ReservedBytes()); err == nil {
		t.Error("expected error encrypting without a key")
	}
}

func TestRC4Clone(t *testing.T) {
	s := newRC4State(t)
	clone := s.Clone()
	reserved := s.ReservedBytes()

	plaintext := bytes.Repeat([]byte{0x9}, 4096)
	buf1 := append([]byte(nil), plaintext...)
	buf2 := append([]byte(nil), plaintext...)
	s.EncryptPage(4, buf1, reserved)
	clone.EncryptPage(4, buf2, reserved)

	if !bytes.Equal(buf1, buf2) {
		t.Error("clone must encrypt identically to the original")
	}
}
