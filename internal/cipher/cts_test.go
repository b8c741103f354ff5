package cipher

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"testing"
)

func TestCBCCTSRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	rand.Read(key)
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	iv := make([]byte, block.BlockSize())
	rand.Read(iv)

	lengths := []int{16, 17, 20, 31, 32, 33, 47, 48, 49, 4096, 4080 + 7}
	for _, n := range lengths {
		plaintext := make([]byte, n)
		rand.Read(plaintext)

		ct := cbcEncryptCTS(block, iv, plaintext)
		if len(ct) != n {
			t.Fatalf("n=%d: ciphertext length = %d, want %d", n, len(ct), n)
		}
		pt := cbcDecryptCTS(block, iv, ct)
		if !bytes.Equal(pt, plaintext) {
			t.Errorf("n=%d: round trip mismatch", n)
		}
	}
}

func TestCBCCTSDistinctFromPlaintext(t *testing.T) {
	key := make([]byte, 16)
	rand.Read(key)
	block, _ := aes.NewCipher(key)
	iv := make([]byte, block.BlockSize())

	plaintext := bytes.Repeat([]byte{0x42}, 50)
	ct := cbcEncryptCTS(block, iv, plaintext)
	if bytes.Equal(ct, plaintext) {
		t.Error("ciphertext must not equal plaintext")
	}
}
