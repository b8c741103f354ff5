package rekey

import (
	"github.com/pagecrypt/sqlitecrypt/internal/cipher"
	"github.com/pagecrypt/sqlitecrypt/internal/codec"
	"github.com/pagecrypt/sqlitecrypt/internal/logging"
)

// SetKey implements set_key(db, schema, key, len): state is a cipher
// already allocated, configured, and keyed by the caller (the pragma/URI
// layer owns descriptor selection and parameter parsing; this package only
// orchestrates the codec transition). A nil state is the empty-key no-op
// spec.md describes for an already-unencrypted database.
func (m *Manager) SetKey(state cipher.State, pageSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state == nil {
		return nil
	}

	if pageSize > 0 {
		m.pageSize = pageSize
	}

	if m.codec == nil {
		m.codec = codec.New(m.dbName, state, m.pageSize)
	} else {
		m.codec.SetCiphers(state, state)
	}
	logging.KeyInstalled(m.dbName, "", m.pageSize, state.ReservedBytes())
	return nil
}

// Attach implements attach(db, schema, path, key): an explicit state sets
// it directly; absent one, an encrypted main connection's cipher pair is
// cloned onto the attached database; absent both, the attached database is
// left unkeyed.
func (m *Manager) Attach(state cipher.State, pageSize int, main *codec.Codec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pageSize > 0 {
		m.pageSize = pageSize
	}

	if state != nil {
		m.codec = codec.New(m.dbName, state, m.pageSize)
		logging.KeyInstalled(m.dbName, "", m.pageSize, state.ReservedBytes())
		return nil
	}

	if main != nil && main.IsEncrypted() {
		read := main.ReadCipher()
		write := main.WriteCipher()
		m.codec = codec.NewEmpty(m.dbName, m.pageSize)
		var readClone, writeClone cipher.State
		if read != nil {
			readClone = read.Clone()
		}
		if write != nil {
			writeClone = write.Clone()
		}
		m.codec.SetCiphers(readClone, writeClone)
		logging.KeyInstalled(m.dbName, "", m.pageSize, m.codec.ReservedBytes())
	}

	return nil
}
