package rekey

import (
	"github.com/google/uuid"

	"github.com/pagecrypt/sqlitecrypt/internal/cipher"
	"github.com/pagecrypt/sqlitecrypt/internal/codec"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
	"github.com/pagecrypt/sqlitecrypt/internal/logging"
)

// PageCopier drives a full page-by-page database copy, reading every page
// via the old read cipher and writing it back via the new write cipher.
// Invoked only when the reserved-bytes footprint changes (a VACUUM-for-
// rekey); the caller supplies it because walking the B-tree and pager is
// outside this package's scope.
type PageCopier func(read, write cipher.State) error

// Rekey implements rekey(db, schema, new_key, new_len) per spec.md §4.7.
// newState is nil to rekey down to an unencrypted database. copier may be
// nil; it is only invoked when the reserved-bytes footprint actually
// changes, and a nil copier in that case is itself a misuse error, since the
// caller promised a VACUUM path but didn't supply one.
func (m *Manager) Rekey(newState cipher.State, copier PageCopier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rekeyID := uuid.NewString()

	if m.walMode {
		return apperrors.NewMisuse("rekey", "cannot rekey a WAL-mode database")
	}
	if m.inMemory || m.temporary {
		return apperrors.NewMisuse("rekey", "cannot rekey an in-memory or temporary database")
	}
	if m.savepoints != nil && m.savepoints.HasActiveSavepoints() {
		return apperrors.NewMisuse("rekey", "cannot rekey while savepoints are open")
	}

	logging.RekeyPhase(rekeyID, m.dbName, "starting")

	if m.codec == nil {
		m.codec = codec.NewEmpty(m.dbName, m.pageSize)
	}

	if newState != nil && newState.PageSize() > 0 && newState.PageSize() != m.pageSize {
		logging.RekeyPhase(rekeyID, m.dbName, "rejected: page size mismatch")
		return apperrors.NewMisuse("rekey", "new cipher mandates a different page size than the current database")
	}

	oldRead := m.codec.ReadCipher()
	oldReserved := cipherReservedBytes(oldRead)
	newReserved := cipherReservedBytes(newState)

	m.codec.SetCiphers(oldRead, newState)
	logging.RekeyPhase(rekeyID, m.dbName, "write cipher installed")

	if oldReserved != newReserved {
		logging.RekeyPhase(rekeyID, m.dbName, "reserved-bytes changed, running VACUUM-for-rekey")
		if copier == nil {
			m.codec.RestoreWriteFromRead()
			logging.RekeyPhase(rekeyID, m.dbName, "failed: no page copier supplied for a reserved-bytes change")
			return apperrors.NewMisuse("rekey", "reserved-bytes change requires a VACUUM-for-rekey page copier")
		}
		if err := copier(oldRead, newState); err != nil {
			m.codec.RestoreWriteFromRead()
			logging.RekeyPhase(rekeyID, m.dbName, "failed during VACUUM-for-rekey")
			return apperrors.Wrap(err, "vacuum-for-rekey")
		}
	}

	m.codec.PromoteWriteToRead()
	logging.RekeyPhase(rekeyID, m.dbName, "committed")
	return nil
}
