// Package codec implements the per-database codec facade: the read/write
// cipher pair and scratch-buffer discipline the VFS shim calls through for
// every page transform, so no single VFS method has to know which cipher
// direction a given file class requires.
package codec

import (
	"sync"

	"github.com/pagecrypt/sqlitecrypt/internal/cipher"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
	"github.com/pagecrypt/sqlitecrypt/internal/logging"
)

// Mode selects which cipher a page transform uses and whether the result
// must land in a scratch buffer rather than clobbering the caller's page.
type Mode int

const (
	// DecryptOnLoad decrypts a page just read off disk, in place, using
	// the read cipher.
	DecryptOnLoad Mode = iota
	// EncryptForMain encrypts a main-database page for writing, using the
	// write cipher, into the codec's scratch buffer.
	EncryptForMain
	// EncryptForJournal encrypts a rollback-journal page for writing,
	// using the read cipher (a rollback journal must be decryptable with
	// the key that originally read the page being journalled).
	EncryptForJournal
)

// Codec owns one database's read and write cipher states plus the scratch
// buffer used whenever an encrypt operation would otherwise overwrite the
// pager's own copy of a page. Guarded by mu the same way the teacher's
// connection-scoped types serialize access from multiple VFS callbacks.
type Codec struct {
	mu sync.Mutex

	dbName string

	read  cipher.State
	write cipher.State

	pageSize      int
	reservedBytes int
	scratch       []byte

	isEncrypted bool
}

// New constructs a Codec from a single state used as both the read and
// write cipher, the normal case right after set_key.
func New(dbName string, state cipher.State, pageSize int) *Codec {
	return &Codec{
		dbName:        dbName,
		read:          state,
		write:         state,
		pageSize:      pageSize,
		reservedBytes: state.ReservedBytes(),
		isEncrypted:   true,
	}
}

// NewEmpty constructs a Codec with no cipher installed yet: the state of a
// connection before set_key runs, or of a database just rekeyed down to
// unencrypted.
func NewEmpty(dbName string, pageSize int) *Codec {
	return &Codec{dbName: dbName, pageSize: pageSize}
}

// ReservedBytes returns the trailing per-page footprint of the installed
// cipher pair: the larger of the read and write ciphers' footprints, which
// are the same except while a rekey is in flight. The pager consults this
// to size its page buffers.
func (c *Codec) ReservedBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reservedBytes
}

// IsEncrypted reports whether this codec currently has an active cipher
// pair at all (false right after a rekey to an unencrypted database).
func (c *Codec) IsEncrypted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isEncrypted
}

// ReadCipher returns the codec's current read-side cipher state.
func (c *Codec) ReadCipher() cipher.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read
}

// WriteCipher returns the codec's current write-side cipher state.
func (c *Codec) WriteCipher() cipher.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write
}

// SetCiphers installs both halves of the read/write pair directly, used by
// set_key and by attach-time codec cloning.
func (c *Codec) SetCiphers(read, write cipher.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.read = read
	c.write = write
	c.isEncrypted = read != nil || write != nil
	c.reservedBytes = maxReserved(read, write)
}

// PromoteWriteToRead copies the write cipher into the read slot, the final
// step of a successful rekey: subsequent reads use the new key.
func (c *Codec) PromoteWriteToRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.read = c.write
	c.isEncrypted = c.write != nil
	c.reservedBytes = maxReserved(c.read, c.write)
	logging.RekeyPhase("", c.dbName, "promoted write cipher to read")
}

// RestoreWriteFromRead reverts the write cipher to the current read cipher,
// the rekey-failure rollback path.
func (c *Codec) RestoreWriteFromRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.write = c.read
	c.reservedBytes = maxReserved(c.read, c.write)
	logging.RekeyPhase("", c.dbName, "restored write cipher from read after failed rekey")
}

func maxReserved(states ...cipher.State) int {
	max := 0
	for _, s := range states {
		if s == nil {
			continue
		}
		if r := s.ReservedBytes(); r > max {
			max = r
		}
	}
	return max
}

func (c *Codec) scratchBuf(n int) []byte {
	if cap(c.scratch) < n {
		c.scratch = make([]byte, n)
	}
	return c.scratch[:n]
}

// EncryptOrDecrypt transforms one page per mode. For DecryptOnLoad, buf is
// transformed in place and returned. For the two encrypt modes, buf is left
// untouched (it is still the pager's live plaintext copy) and a scratch
// buffer holding the ciphertext is returned instead; that scratch buffer is
// shared by both encrypt modes and is overwritten by the next encrypt call.
func (c *Codec) EncryptOrDecrypt(pageNo uint32, buf []byte, mode Mode) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch mode {
	case DecryptOnLoad:
		if c.read == nil {
			return buf, nil
		}
		if err := c.read.DecryptPage(pageNo, buf, c.reservedBytes, true); err != nil {
			return nil, err
		}
		return buf, nil

	case EncryptForMain:
		if c.write == nil {
			return buf, nil
		}
		out := c.scratchBuf(len(buf))
		copy(out, buf)
		if err := c.write.EncryptPage(pageNo, out, c.reservedBytes); err != nil {
			return nil, err
		}
		return out, nil

	case EncryptForJournal:
		if c.read == nil {
			return buf, nil
		}
		out := c.scratchBuf(len(buf))
		copy(out, buf)
		if err := c.read.EncryptPage(pageNo, out, c.reservedBytes); err != nil {
			return nil, err
		}
		return out, nil

	default:
		return nil, apperrors.NewMisuse("encrypt_or_decrypt", "unknown mode")
	}
}

// Free releases both cipher states' key material. Safe to call more than
// once; safe to call when read and write alias the same State.
func (c *Codec) Free() {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[cipher.State]bool{}
	for _, s := range []cipher.State{c.read, c.write} {
		if s == nil || seen[s] {
			continue
		}
		seen[s] = true
		s.Free()
	}
	c.read, c.write = nil, nil
	c.scratch = nil
	c.isEncrypted = false
}
