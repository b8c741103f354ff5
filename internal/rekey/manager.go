// Package rekey orchestrates the key lifecycle for one database connection:
// set_key, attach, and rekey, as described by the engine's key-management
// surface. It owns no page I/O of its own; the full page-by-page database
// copy a reserved-bytes change forces during a VACUUM-for-rekey is driven by
// a caller-supplied PageCopier, since the B-tree and pager mechanics that
// actually walk the database are outside this shim's scope.
package rekey

import (
	"sync"

	"github.com/pagecrypt/sqlitecrypt/internal/cipher"
	"github.com/pagecrypt/sqlitecrypt/internal/codec"
	"github.com/pagecrypt/sqlitecrypt/internal/pager"
)

// Manager holds one database connection's key-lifecycle state: its current
// codec (if any), the mode flags that gate rekey eligibility, and the
// savepoint tracker consulted before a rekey begins.
type Manager struct {
	mu sync.Mutex

	dbName   string
	codec    *codec.Codec
	pageSize int

	savepoints *pager.SavepointTracker

	walMode   bool
	inMemory  bool
	temporary bool
}

// NewManager constructs a Manager for dbName with no codec installed yet.
// savepoints may be nil, in which case Rekey skips the savepoint check (the
// temp-database case, which has no savepoint tracker of its own).
func NewManager(dbName string, pageSize int, savepoints *pager.SavepointTracker) *Manager {
	return &Manager{dbName: dbName, pageSize: pageSize, savepoints: savepoints}
}

// Codec returns the connection's current codec, or nil if no key has been
// installed.
func (m *Manager) Codec() *codec.Codec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codec
}

// SetWALMode, SetInMemory, and SetTemporary record the connection's current
// mode so Rekey can enforce spec §4.7's eligibility rules. A real engine
// calls these whenever the underlying mode changes (journal_mode=WAL,
// :memory:, or a TEMP attachment).
func (m *Manager) SetWALMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.walMode = on
}

func (m *Manager) SetInMemory(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inMemory = on
}

func (m *Manager) SetTemporary(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temporary = on
}

func cipherReservedBytes(s cipher.State) int {
	if s == nil {
		return 0
	}
	return s.ReservedBytes()
}
