package pager

import "testing"

func TestWALFrameHeaderRoundTrip(t *testing.T) {
	h := WALFrameHeader{
		Pgno:        7,
		DBSizeAfter: 42,
		Salt1:       0x1111,
		Salt2:       0x2222,
		Checksum1:   0x3333,
		Checksum2:   0x4444,
	}
	buf := h.Serialize()
	if len(buf) != WALFrameHeaderSize {
		t.Fatalf("expected %d-byte header, got %d", WALFrameHeaderSize, len(buf))
	}
	got := ParseWALFrameHeader(buf)
	if got != h {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestWALFramePgnoFromCombinedRead(t *testing.T) {
	h := WALFrameHeader{Pgno: 99}
	combined := append(h.Serialize(), make([]byte, 4096)...)
	if got := WALFramePgno(combined); got != 99 {
		t.Errorf("expected page number 99, got %d", got)
	}
}
