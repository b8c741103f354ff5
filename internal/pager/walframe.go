package pager

import "encoding/binary"

// WALFrameHeaderSize is the size of a WAL frame header: page number,
// database size after commit (0 for non-commit frames), two salt values
// copied from the WAL header, and two running checksums. Grounded on
// spec.md §6's WAL frame layout table; the teacher's pager has no WAL
// support at all, so this file is built directly from that table rather
// than adapted from teacher code.
const WALFrameHeaderSize = 24

// WALFrameHeader is the 24-byte header preceding every WAL frame's page
// body. It stays in plaintext; only the frame body is encrypted.
type WALFrameHeader struct {
	Pgno        uint32
	DBSizeAfter uint32 // non-zero only on a commit frame
	Salt1       uint32
	Salt2       uint32
	Checksum1   uint32
	Checksum2   uint32
}

// ParseWALFrameHeader decodes a 24-byte WAL frame header.
func ParseWALFrameHeader(b []byte) WALFrameHeader {
	return WALFrameHeader{
		Pgno:        binary.BigEndian.Uint32(b[0:4]),
		DBSizeAfter: binary.BigEndian.Uint32(b[4:8]),
		Salt1:       binary.BigEndian.Uint32(b[8:12]),
		Salt2:       binary.BigEndian.Uint32(b[12:16]),
		Checksum1:   binary.BigEndian.Uint32(b[16:20]),
		Checksum2:   binary.BigEndian.Uint32(b[20:24]),
	}
}

// Serialize encodes h back into a 24-byte WAL frame header.
func (h WALFrameHeader) Serialize() []byte {
	b := make([]byte, WALFrameHeaderSize)
	binary.BigEndian.PutUint32(b[0:4], h.Pgno)
	binary.BigEndian.PutUint32(b[4:8], h.DBSizeAfter)
	binary.BigEndian.PutUint32(b[8:12], h.Salt1)
	binary.BigEndian.PutUint32(b[12:16], h.Salt2)
	binary.BigEndian.PutUint32(b[16:20], h.Checksum1)
	binary.BigEndian.PutUint32(b[20:24], h.Checksum2)
	return b
}

// WALFramePgno reads just the page number out of a read that combined the
// 24-byte frame header and the page body in one buffer — the legacy
// combined-read path spec.md §4.6 describes for WAL reads.
func WALFramePgno(combined []byte) uint32 {
	return binary.BigEndian.Uint32(combined[0:4])
}
