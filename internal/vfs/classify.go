// Package vfs implements the encrypting VFS shim: file-open classification,
// the main-file registry, and the page-aware read/write interception that
// sits between the engine's pager and the underlying operating-system file.
package vfs

// OpenFlag mirrors the subset of the engine's SQLITE_OPEN_* bit flags the
// shim needs in order to classify a file at open time. Lock-mode and
// lifetime flags the engine also passes (delete-on-close, exclusive, and so
// on) are not modeled; they never change how a file is encrypted.
type OpenFlag uint32

const (
	OpenReadOnly OpenFlag = 1 << iota
	OpenReadWrite
	OpenCreate
	OpenMainDB
	OpenMainJournal
	OpenTempDB
	OpenTempJournal
	OpenTransientDB
	OpenSubJournal
	OpenMasterJournal
	OpenWAL
)

// FileClass is the file kind the shim dispatches read/write interception on.
type FileClass int

const (
	ClassMainDB FileClass = iota
	ClassTempDB
	ClassMainJournal
	ClassTempJournal
	ClassSubJournal
	ClassMasterJournal
	ClassWAL
	ClassTransient
)

func (c FileClass) String() string {
	switch c {
	case ClassMainDB:
		return "MAIN_DB"
	case ClassTempDB:
		return "TEMP_DB"
	case ClassMainJournal:
		return "MAIN_JOURNAL"
	case ClassTempJournal:
		return "TEMP_JOURNAL"
	case ClassSubJournal:
		return "SUBJOURNAL"
	case ClassMasterJournal:
		return "MASTER_JOURNAL"
	case ClassWAL:
		return "WAL"
	default:
		return "TRANSIENT"
	}
}

// Classify maps the engine's open flags onto a FileClass. Flags are checked
// in the order the format distinguishes them; a file with none of the
// recognized bits set is treated as TRANSIENT and always passed through.
func Classify(flags OpenFlag) FileClass {
	switch {
	case flags&OpenMainDB != 0:
		return ClassMainDB
	case flags&OpenMainJournal != 0:
		return ClassMainJournal
	case flags&OpenTempDB != 0:
		return ClassTempDB
	case flags&OpenTempJournal != 0:
		return ClassTempJournal
	case flags&OpenSubJournal != 0:
		return ClassSubJournal
	case flags&OpenMasterJournal != 0:
		return ClassMasterJournal
	case flags&OpenWAL != 0:
		return ClassWAL
	default:
		return ClassTransient
	}
}

// AccessFlag mirrors the engine's xAccess check kinds.
type AccessFlag int

const (
	AccessExists AccessFlag = iota
	AccessReadWrite
	AccessRead
)
