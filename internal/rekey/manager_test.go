package rekey

import (
	"errors"
	"testing"

	"github.com/pagecrypt/sqlitecrypt/internal/cipher"
	"github.com/pagecrypt/sqlitecrypt/internal/pager"
)

func newKeyedState(t *testing.T, password string) cipher.State {
	t.Helper()
	desc := &cipher.AESCBCDescriptor{KeyBits: 256}
	s := desc.Allocate()
	if err := s.GenerateKey("main", password, false, nil); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSetKeyOnFreshConnection(t *testing.T) {
	m := NewManager("main.db", 4096, nil)
	state := newKeyedState(t, "secret")

	if err := m.SetKey(state, 4096); err != nil {
		t.Fatal(err)
	}
	if m.Codec() == nil || !m.Codec().IsEncrypted() {
		t.Fatal("expected an encrypted codec after SetKey")
	}
}

func TestSetKeyNilIsNoOp(t *testing.T) {
	m := NewManager("main.db", 4096, nil)
	if err := m.SetKey(nil, 4096); err != nil {
		t.Fatal(err)
	}
	if m.Codec() != nil {
		t.Error("a nil-key SetKey on an unencrypted database must stay unkeyed")
	}
}

func TestAttachExplicitKey(t *testing.T) {
	m := NewManager("attached.db", 4096, nil)
	state := newKeyedState(t, "secret")
	if err := m.Attach(state, 4096, nil); err != nil {
		t.Fatal(err)
	}
	if !m.Codec().IsEncrypted() {
		t.Fatal("expected an encrypted codec after Attach with an explicit key")
	}
}

func TestAttachInheritsFromEncryptedMain(t *testing.T) {
	mainMgr := NewManager("main.db", 4096, nil)
	mainMgr.SetKey(newKeyedState(t, "secret"), 4096)

	attachMgr := NewManager("attached.db", 4096, nil)
	if err := attachMgr.Attach(nil, 4096, mainMgr.Codec()); err != nil {
		t.Fatal(err)
	}
	if !attachMgr.Codec().IsEncrypted() {
		t.Fatal("expected attach to inherit the main connection's cipher")
	}
	if attachMgr.Codec().ReadCipher() == mainMgr.Codec().ReadCipher() {
		t.Error("attach must clone the main cipher, not alias it")
	}
}

func TestAttachNoKeyUnencryptedMainStaysUnkeyed(t *testing.T) {
	mainMgr := NewManager("main.db", 4096, nil)
	attachMgr := NewManager("attached.db", 4096, nil)
	if err := attachMgr.Attach(nil, 4096, mainMgr.Codec()); err != nil {
		t.Fatal(err)
	}
	if attachMgr.Codec() != nil {
		t.Error("attach with no key and an unencrypted main must leave the attachment unkeyed")
	}
}

func TestRekeySameReservedBytesNoopCopier(t *testing.T) {
	m := NewManager("main.db", 4096, nil)
	m.SetKey(newKeyedState(t, "old-secret"), 4096)

	newState := newKeyedState(t, "new-secret")
	called := false
	err := m.Rekey(newState, func(read, write cipher.State) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("same reserved-bytes footprint must not invoke the page copier")
	}
	if m.Codec().ReadCipher() != newState {
		t.Error("expected the new cipher promoted to the read slot")
	}
}

func TestRekeyRejectsWALMode(t *testing.T) {
	m := NewManager("main.db", 4096, nil)
	m.SetWALMode(true)
	if err := m.Rekey(newKeyedState(t, "x"), nil); err == nil {
		t.Fatal("expected rekey to be rejected in WAL mode")
	}
}

func TestRekeyRejectsInMemory(t *testing.T) {
	m := NewManager("main.db", 4096, nil)
	m.SetInMemory(true)
	if err := m.Rekey(newKeyedState(t, "x"), nil); err == nil {
		t.Fatal("expected rekey to be rejected for an in-memory database")
	}
}

func TestRekeyRejectsActiveSavepoints(t *testing.T) {
	tracker := pager.NewSavepointTracker()
	tracker.Open("sp1")
	m := NewManager("main.db", 4096, tracker)
	if err := m.Rekey(newKeyedState(t, "x"), nil); err == nil {
		t.Fatal("expected rekey to be rejected while savepoints are open")
	}
}

func TestRekeyRejectsPageSizeMismatch(t *testing.T) {
	// The legacy ChaCha20 variant mandates a fixed 4096-byte page size; a
	// database running at a different page size must reject it.
	m := NewManager("main.db", 8192, nil)
	m.SetKey(newKeyedState(t, "old"), 8192)

	desc := &cipher.ChaCha20Poly1305Descriptor{}
	table, err := cipher.NewTable(desc.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if err := table.Set(cipher.ScopeCurrent, "legacy", 1); err != nil {
		t.Fatal(err)
	}
	newState := desc.Allocate()
	if err := newState.Configure(table); err != nil {
		t.Fatal(err)
	}
	if err := newState.GenerateKey("main", "new", false, nil); err != nil {
		t.Fatal(err)
	}

	if newState.PageSize() == 0 || newState.PageSize() == 8192 {
		t.Fatal("expected the legacy chacha20 cipher to mandate a 4096-byte page size")
	}
	if err := m.Rekey(newState, nil); err == nil {
		t.Fatal("expected rekey to reject a page-size-mandating cipher mismatch")
	}
}

func TestRekeyDifferentReservedBytesInvokesCopier(t *testing.T) {
	m := NewManager("main.db", 4096, nil)
	m.SetKey(newKeyedState(t, "old"), 4096) // AES-CBC: reserved_bytes=0

	desc := &cipher.SQLCipherDescriptor{}
	newState := desc.Allocate() // SQLCipher: reserved_bytes>0
	if err := newState.GenerateKey("main", "new", false, nil); err != nil {
		t.Fatal(err)
	}

	called := false
	err := m.Rekey(newState, func(read, write cipher.State) error {
		called = true
		if write != newState {
			t.Error("copier must receive the new write cipher")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("a reserved-bytes change must invoke the page copier")
	}
}

func TestRekeyMissingCopierIsRejectedAndRolledBack(t *testing.T) {
	m := NewManager("main.db", 4096, nil)
	m.SetKey(newKeyedState(t, "old"), 4096)
	oldRead := m.Codec().ReadCipher()

	desc := &cipher.SQLCipherDescriptor{}
	newState := desc.Allocate()
	if err := newState.GenerateKey("main", "new", false, nil); err != nil {
		t.Fatal(err)
	}

	if err := m.Rekey(newState, nil); err == nil {
		t.Fatal("expected an error when a reserved-bytes change has no page copier")
	}
	if m.Codec().ReadCipher() != oldRead {
		t.Error("a rejected rekey must leave the read cipher untouched")
	}
	if m.Codec().WriteCipher() != oldRead {
		t.Error("a rejected rekey must restore the write cipher from the read cipher")
	}
}

func TestRekeyCopierFailureRollsBack(t *testing.T) {
	m := NewManager("main.db", 4096, nil)
	m.SetKey(newKeyedState(t, "old"), 4096)
	oldRead := m.Codec().ReadCipher()

	desc := &cipher.SQLCipherDescriptor{}
	newState := desc.Allocate()
	if err := newState.GenerateKey("main", "new", false, nil); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("disk full")
	err := m.Rekey(newState, func(read, write cipher.State) error { return boom })
	if err == nil {
		t.Fatal("expected the copier's error to propagate")
	}
	if m.Codec().ReadCipher() != oldRead || m.Codec().WriteCipher() != oldRead {
		t.Error("a failed VACUUM-for-rekey must roll back to the old cipher on both slots")
	}
}
