package vfs

import (
	"io"
	"sync"

	"github.com/pagecrypt/sqlitecrypt/internal/codec"
	"github.com/pagecrypt/sqlitecrypt/internal/pager"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
)

// saltProbeSize is the fixed 16-byte header read the engine issues to sniff
// a database's format (and, on an encrypted database, its key salt) before
// any page-aligned I/O has happened. It must never be decrypted.
const saltProbeSize = 16

// File is one open handle behind the shim. A MAIN_DB handle owns a codec and
// anchors the main-file registry; journal, subjournal, and WAL handles hold
// a back-reference to their owning MAIN_DB node instead of owning one.
type File struct {
	mu         sync.Mutex
	underlying UnderlyingFile
	path       string
	class      FileClass

	// Set only on a MAIN_DB handle.
	codec    *codec.Codec
	pageSize int

	// Set only on MAIN_JOURNAL, SUBJOURNAL, and WAL handles, resolved at
	// open time from the journal's database= URI parameter. A nil main is
	// tolerated as pass-through per the registry's stale-reference rule.
	main *File

	// Stashed page number for the MAIN_JOURNAL/SUBJOURNAL read and write
	// protocol: the engine writes or reads a 4-byte page number immediately
	// before each frame body.
	havePendingPgno bool
	pendingPgno     uint32
}

func newFile(underlying UnderlyingFile, path string, class FileClass) *File {
	return &File{underlying: underlying, path: path, class: class, pageSize: pager.DefaultPageSize}
}

// Class reports the file's classification.
func (f *File) Class() FileClass { return f.class }

// Path reports the path the file was opened with.
func (f *File) Path() string { return f.path }

// SetPageSize records the page size this file's codec operates at, once the
// engine has read it out of the database header.
func (f *File) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

// SetCodec installs this MAIN_DB handle's codec, normally called right after
// set_key resolves one.
func (f *File) SetCodec(c *codec.Codec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codec = c
}

// Codec returns this handle's own codec if it is a MAIN_DB file, or nil
// otherwise. Use ownerCodec internally to also resolve through a
// journal/WAL back-reference.
func (f *File) Codec() *codec.Codec { return f.codec }

func (f *File) ownerCodec() *codec.Codec {
	if f.codec != nil {
		return f.codec
	}
	if f.main != nil {
		return f.main.codec
	}
	return nil
}

func (f *File) ownerPageSize() int {
	if f.codec != nil {
		if f.pageSize > 0 {
			return f.pageSize
		}
		return pager.DefaultPageSize
	}
	if f.main != nil && f.main.pageSize > 0 {
		return f.main.pageSize
	}
	return pager.DefaultPageSize
}

// Close closes the underlying file. Removing a MAIN_DB handle from the
// registry is the shim's job, done before Close is called.
func (f *File) Close() error {
	return f.underlying.Close()
}

func (f *File) Truncate(size int64) error { return f.underlying.Truncate(size) }
func (f *File) Sync() error               { return f.underlying.Sync() }

// ReadAt dispatches to the per-class read protocol described in spec §4.6.
func (f *File) ReadAt(buf []byte, offset int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.class {
	case ClassMainDB:
		return f.readMainDB(buf, offset)
	case ClassMainJournal, ClassSubJournal:
		return f.readJournal(buf, offset)
	case ClassWAL:
		return f.readWAL(buf, offset)
	default:
		return f.underlying.ReadAt(buf, offset)
	}
}

func (f *File) readMainDB(buf []byte, offset int64) (int, error) {
	if offset == 0 && len(buf) == saltProbeSize {
		return f.underlying.ReadAt(buf, offset)
	}
	if f.codec == nil {
		return f.underlying.ReadAt(buf, offset)
	}

	pageSize := f.ownerPageSize()
	pgno := pager.PageNumberForOffset(offset, pageSize)
	pageStart := pager.OffsetForPage(pgno, pageSize)

	page := make([]byte, pageSize)
	n, err := f.underlying.ReadAt(page, pageStart)
	if n == 0 && err != nil {
		return 0, err
	}
	if n < pageSize {
		return 0, apperrors.NewCorrupt(pgno, "partial-page read from underlying storage")
	}

	decrypted, err := f.codec.EncryptOrDecrypt(pgno, page, codec.DecryptOnLoad)
	if err != nil {
		return 0, err
	}

	start := int(offset - pageStart)
	if start < 0 || start+len(buf) > len(decrypted) {
		return 0, apperrors.NewCorrupt(pgno, "partial read out of page bounds")
	}
	copy(buf, decrypted[start:start+len(buf)])
	return len(buf), nil
}

func (f *File) readJournal(buf []byte, offset int64) (int, error) {
	if len(buf) == pager.JournalPgnoSize {
		n, err := f.underlying.ReadAt(buf, offset)
		if err != nil {
			return n, err
		}
		f.pendingPgno = pager.ParseJournalPgno(buf)
		f.havePendingPgno = true
		return n, nil
	}

	c := f.ownerCodec()
	if c == nil || !f.havePendingPgno || len(buf) != f.ownerPageSize() {
		return f.underlying.ReadAt(buf, offset)
	}

	n, err := f.underlying.ReadAt(buf, offset)
	if n == 0 && err != nil {
		return 0, err
	}
	if n < len(buf) {
		return 0, apperrors.NewCorrupt(f.pendingPgno, "partial-page read from journal")
	}

	decrypted, err := c.EncryptOrDecrypt(f.pendingPgno, buf, codec.DecryptOnLoad)
	if err != nil {
		return 0, err
	}
	copy(buf, decrypted)
	f.havePendingPgno = false
	return n, nil
}

func (f *File) readWAL(buf []byte, offset int64) (int, error) {
	c := f.ownerCodec()
	if c == nil {
		return f.underlying.ReadAt(buf, offset)
	}
	pageSize := f.ownerPageSize()

	switch len(buf) {
	case pager.WALFrameHeaderSize + pageSize:
		n, err := f.underlying.ReadAt(buf, offset)
		if n == 0 && err != nil {
			return 0, err
		}
		if n < len(buf) {
			return 0, apperrors.NewCorrupt(0, "partial-page read from WAL frame")
		}
		pgno := pager.WALFramePgno(buf)
		body := buf[pager.WALFrameHeaderSize:]
		decrypted, err := c.EncryptOrDecrypt(pgno, body, codec.DecryptOnLoad)
		if err != nil {
			return 0, err
		}
		copy(body, decrypted)
		return n, nil

	case pageSize:
		headerBuf := make([]byte, pager.WALFrameHeaderSize)
		if _, err := f.underlying.ReadAt(headerBuf, offset-int64(pager.WALFrameHeaderSize)); err != nil {
			return 0, err
		}
		header := pager.ParseWALFrameHeader(headerBuf)

		n, err := f.underlying.ReadAt(buf, offset)
		if n == 0 && err != nil {
			return 0, err
		}
		if n < len(buf) {
			return 0, apperrors.NewCorrupt(header.Pgno, "partial-page read from WAL frame")
		}
		decrypted, err := c.EncryptOrDecrypt(header.Pgno, buf, codec.DecryptOnLoad)
		if err != nil {
			return 0, err
		}
		copy(buf, decrypted)
		return n, nil

	default:
		return f.underlying.ReadAt(buf, offset)
	}
}

// WriteAt dispatches to the per-class write protocol, mirroring ReadAt.
func (f *File) WriteAt(buf []byte, offset int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.class {
	case ClassMainDB:
		return f.writeMainDB(buf, offset)
	case ClassMainJournal, ClassSubJournal:
		return f.writeJournal(buf, offset)
	case ClassWAL:
		return f.writeWAL(buf, offset)
	default:
		return f.underlying.WriteAt(buf, offset)
	}
}

func (f *File) writeMainDB(buf []byte, offset int64) (int, error) {
	if f.codec == nil {
		return f.underlying.WriteAt(buf, offset)
	}
	pageSize := f.ownerPageSize()
	pgno := pager.PageNumberForOffset(offset, pageSize)

	ciphertext, err := f.codec.EncryptOrDecrypt(pgno, buf, codec.EncryptForMain)
	if err != nil {
		return 0, err
	}
	return f.underlying.WriteAt(ciphertext, offset)
}

func (f *File) writeJournal(buf []byte, offset int64) (int, error) {
	if len(buf) == pager.JournalPgnoSize {
		f.pendingPgno = pager.ParseJournalPgno(buf)
		f.havePendingPgno = true
		return f.underlying.WriteAt(buf, offset)
	}

	c := f.ownerCodec()
	if c == nil || !f.havePendingPgno || len(buf) != f.ownerPageSize() {
		return f.underlying.WriteAt(buf, offset)
	}

	// The rollback journal is encrypted with the read cipher, not the
	// write cipher, so a journalled page stays decryptable with the key
	// that originally read it even mid-rekey.
	ciphertext, err := c.EncryptOrDecrypt(f.pendingPgno, buf, codec.EncryptForJournal)
	if err != nil {
		return 0, err
	}
	n, err := f.underlying.WriteAt(ciphertext, offset)
	f.havePendingPgno = false
	return n, err
}

func (f *File) writeWAL(buf []byte, offset int64) (int, error) {
	c := f.ownerCodec()
	if c == nil {
		return f.underlying.WriteAt(buf, offset)
	}
	pageSize := f.ownerPageSize()

	switch {
	case len(buf) == pager.WALFrameHeaderSize:
		// Non-legacy path: the engine writes the frame header and body in
		// separate calls. The header carries the page number the next
		// body write will need.
		f.pendingPgno = pager.WALFramePgno(buf)
		f.havePendingPgno = true
		return f.underlying.WriteAt(buf, offset)

	case len(buf) == pageSize && f.havePendingPgno:
		ciphertext, err := c.EncryptOrDecrypt(f.pendingPgno, buf, codec.EncryptForMain)
		if err != nil {
			return 0, err
		}
		n, err := f.underlying.WriteAt(ciphertext, offset)
		f.havePendingPgno = false
		return n, err

	case len(buf) == pager.WALFrameHeaderSize+pageSize:
		// Legacy path: header and body arrive in a single write.
		pgno := pager.WALFramePgno(buf)
		ciphertext, err := c.EncryptOrDecrypt(pgno, buf[pager.WALFrameHeaderSize:], codec.EncryptForMain)
		if err != nil {
			return 0, err
		}
		out := make([]byte, len(buf))
		copy(out, buf[:pager.WALFrameHeaderSize])
		copy(out[pager.WALFrameHeaderSize:], ciphertext)
		return f.underlying.WriteAt(out, offset)

	default:
		return f.underlying.WriteAt(buf, offset)
	}
}

var _ io.ReaderAt = (*File)(nil)
var _ io.WriterAt = (*File)(nil)
