// Package pager implements the SQLite database file format math the VFS
// shim needs: the 100-byte header, page-number/offset conversion that
// accounts for a cipher's reserved-bytes footprint, and the rollback
// journal and WAL frame layouts the shim reads page numbers out of.
//
// This package intentionally does not implement a B-tree pager: page
// caching, transaction scheduling, and savepoint rollback are the
// engine's job, not the encrypting shim's. What lives here is the pure
// layout arithmetic the shim's read/write interception depends on.
package pager

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the size of the database file header (first 100 bytes).
	HeaderSize = 100

	// DefaultPageSize is the default page size for new databases.
	DefaultPageSize = 4096

	// MinPageSize is the minimum allowed page size (512 bytes).
	MinPageSize = 512

	// MaxPageSize is the maximum allowed page size (65536 bytes).
	MaxPageSize = 65536

	// MagicString is the 16-byte magic header of a SQLite 3 database file.
	MagicString = "SQLite format 3\x00"
)

// Header byte offsets within the first 100 bytes of a main database file.
const (
	offsetMagic          = 0
	offsetPageSize       = 16
	offsetFileFormatW    = 18
	offsetFileFormatR    = 19
	offsetReservedSpace  = 20
	offsetFileChangeCtr  = 24
	offsetDatabaseSize   = 28
)

// Header represents the fields of the 100-byte database header this shim
// cares about: the page size and the reserved-bytes-per-page count, which
// must track whatever the active cipher's ReservedBytes() requires.
type Header struct {
	Magic         [16]byte
	PageSize      uint16
	ReservedSpace uint8
	DatabaseSize  uint32
}

// ParseHeader parses the 100-byte database header from raw bytes.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("invalid header size: got %d, want %d", len(data), HeaderSize)
	}
	h := &Header{}
	copy(h.Magic[:], data[offsetMagic:offsetMagic+16])
	h.PageSize = binary.BigEndian.Uint16(data[offsetPageSize : offsetPageSize+2])
	h.ReservedSpace = data[offsetReservedSpace]
	h.DatabaseSize = binary.BigEndian.Uint32(data[offsetDatabaseSize : offsetDatabaseSize+4])
	return h, nil
}

// LooksLikeMagic reports whether the header's first 16 bytes are the
// plaintext SQLite magic string, as opposed to an encrypted cipher's
// key-salt occupying that same region.
func (h *Header) LooksLikeMagic() bool {
	return string(h.Magic[:]) == MagicString
}

// EffectivePageSize returns the header's page size, resolving the special
// case where 65536 is stored as 1 (it does not fit in a uint16).
func (h *Header) EffectivePageSize() int {
	if h.PageSize == 1 {
		return MaxPageSize
	}
	return int(h.PageSize)
}

// Serialize writes the header's fields back into a 100-byte buffer,
// preserving whatever else the caller has already placed in data (the
// salt, or page-1's encrypted body immediately following the header).
func (h *Header) Serialize(data []byte) {
	copy(data[offsetMagic:], h.Magic[:])
	binary.BigEndian.PutUint16(data[offsetPageSize:], h.PageSize)
	data[offsetFileFormatW] = 1
	data[offsetFileFormatR] = 1
	data[offsetReservedSpace] = h.ReservedSpace
	binary.BigEndian.PutUint32(data[offsetDatabaseSize:], h.DatabaseSize)
}

// IsValidPageSize reports whether size is a legal SQLite page size: a
// power of 2 between 512 and 65536 inclusive (or the special value 1,
// meaning 65536, as it appears on the wire).
func IsValidPageSize(size int) bool {
	if size == 1 {
		return true
	}
	if size < MinPageSize || size > MaxPageSize {
		return false
	}
	return size&(size-1) == 0
}

// PageNumberForOffset returns the 1-based page number containing a byte at
// the given file offset, given the database's page size.
func PageNumberForOffset(offset int64, pageSize int) uint32 {
	return uint32(offset/int64(pageSize)) + 1
}

// OffsetForPage returns the file offset at which the given 1-based page
// number begins.
func OffsetForPage(pageNo uint32, pageSize int) int64 {
	return int64(pageNo-1) * int64(pageSize)
}

// IsPageAligned reports whether an (offset, count) access exactly covers
// one page per the given page size — the condition the VFS read/write
// classification tables require before transforming a buffer page-by-page.
func IsPageAligned(offset int64, count, pageSize int) bool {
	return count == pageSize && offset%int64(pageSize) == 0
}
