package pager

import "encoding/binary"

// JournalPgnoSize is the width of the page-number prefix the engine writes
// immediately before a rollback-journal or sub-journal frame's body.
const JournalPgnoSize = 4

// ParseJournalPgno decodes the 4-byte big-endian page number the engine
// writes just before a journal frame's body. Grounded on the teacher
// pager's journal entry layout (`pagerref/pager.go`'s journalPage), which
// used the identical "page number prefix, then page body" framing.
func ParseJournalPgno(prefix []byte) uint32 {
	return binary.BigEndian.Uint32(prefix)
}

// EncodeJournalPgno writes pgno as the 4-byte big-endian prefix expected
// before a journal frame's body.
func EncodeJournalPgno(pgno uint32) []byte {
	var b [JournalPgnoSize]byte
	binary.BigEndian.PutUint32(b[:], pgno)
	return b[:]
}
