// Package sqlitecrypt is the top-level facade over the page-level encrypting
// storage shim: cipher registration, opening a main database file through
// the encrypting VFS, and the set_key/rekey key-lifecycle surface. It never
// parses SQL, walks a B-tree, or schedules transactions — those belong to
// whatever engine sits on top of the page-storage handle this package
// returns.
package sqlitecrypt

import (
	"io"
	"os"
	"strings"

	"github.com/pagecrypt/sqlitecrypt/internal/cipher"
	"github.com/pagecrypt/sqlitecrypt/internal/codec"
	"github.com/pagecrypt/sqlitecrypt/internal/pager"
	"github.com/pagecrypt/sqlitecrypt/internal/rekey"
	"github.com/pagecrypt/sqlitecrypt/internal/vfs"
	"github.com/pagecrypt/sqlitecrypt/pragma"
)

// Registry is the process-wide cipher registry RegisterCipher writes into
// and Open reads from. Pre-populated at init with the six built-in page
// ciphers: aes128cbc, aes256cbc, chacha20, sqlcipher (the default), ascon128,
// and rc4.
var Registry = cipher.DefaultRegistry

func init() {
	registerBuiltinCiphers()
}

func registerBuiltinCiphers() {
	builtins := []struct {
		desc        cipher.Descriptor
		makeDefault bool
	}{
		{&cipher.AESCBCDescriptor{KeyBits: 128}, false},
		{&cipher.AESCBCDescriptor{KeyBits: 256}, false},
		{&cipher.ChaCha20Poly1305Descriptor{}, false},
		{&cipher.SQLCipherDescriptor{}, true},
		{&cipher.AsconDescriptor{}, false},
		{&cipher.RC4Descriptor{}, false},
	}
	for _, b := range builtins {
		if _, err := Registry.Register(b.desc, b.desc.DefaultParams(), b.makeDefault); err != nil {
			panic("sqlitecrypt: built-in cipher registration failed: " + err.Error())
		}
	}
}

// RegisterCipher adds a custom page cipher to Registry, the same entry
// point PRAGMA cipher=NAME and the cipher= URI parameter resolve against.
func RegisterCipher(desc cipher.Descriptor, params []cipher.Param, makeDefault bool) (int, error) {
	return Registry.Register(desc, params, makeDefault)
}

// DB is one opened main-database connection: the VFS shim, the main file
// handle, and the key-lifecycle manager backing set_key and rekey. It is
// the page-storage seam a real SQL engine's pager drives with ReadAt/WriteAt
// traffic; this package owns nothing above the page level.
type DB struct {
	path string
	shim *vfs.Shim
	file *vfs.File
	keys *rekey.Manager
}

// Open splits path into a bare filesystem path and an optional "?query"
// string, resolves any cipher=/key=/hexkey=-style settings against
// Registry, and opens the main database file through a fresh encrypting VFS
// shim. A path with no key setting opens unencrypted.
func Open(path string) (*DB, error) {
	bare, settings, err := splitURI(path)
	if err != nil {
		return nil, err
	}

	state, err := pragma.Resolve(Registry, settings, bare, false, readExistingSalt(bare))
	if err != nil {
		return nil, err
	}

	pageSize := pager.DefaultPageSize
	if state != nil && state.PageSize() > 0 {
		pageSize = state.PageSize()
	}

	keys := rekey.NewManager(bare, pageSize, pager.NewSavepointTracker())
	if state != nil {
		if err := keys.SetKey(state, pageSize); err != nil {
			return nil, err
		}
	}

	shim := vfs.NewShim("sqlitecrypt", vfs.OSUnderlying{}, func(string) *codec.Codec {
		return keys.Codec()
	})

	f, err := shim.Open(bare, vfs.OpenMainDB|vfs.OpenReadWrite|vfs.OpenCreate, "")
	if err != nil {
		return nil, err
	}
	f.SetPageSize(pageSize)

	return &DB{path: bare, shim: shim, file: f, keys: keys}, nil
}

// readExistingSalt reads back the 16-byte leading region of an existing
// main database file's page 1, the same unconditional salt-probe read
// internal/vfs/file.go performs ahead of any codec transform. Returns nil
// when the file does not exist yet, is too short to hold a header, or
// already starts with the plaintext SQLite magic (nothing encrypted to
// recover a salt from).
func readExistingSalt(path string) *[16]byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var buf [16]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return nil
	}
	if string(buf[:]) == pager.MagicString {
		return nil
	}
	return &buf
}

// splitURI separates "path?query" into the bare path and its parsed
// Settings. A path with no "?" yields empty Settings.
func splitURI(path string) (string, *pragma.Settings, error) {
	settings := pragma.NewSettings()
	idx := strings.IndexByte(path, '?')
	if idx < 0 {
		return path, settings, nil
	}
	bare := path[:idx]
	if err := settings.ApplyURIQuery(path[idx+1:]); err != nil {
		return "", nil, err
	}
	return bare, settings, nil
}

// Close closes the connection's main database file.
func (db *DB) Close() error {
	return db.shim.Close(db.file)
}

// File exposes the raw page-level file handle.
func (db *DB) File() *vfs.File {
	return db.file
}

// IsEncrypted reports whether this connection currently has an active
// cipher pair installed.
func (db *DB) IsEncrypted() bool {
	c := db.keys.Codec()
	return c != nil && c.IsEncrypted()
}

// SetKey implements PRAGMA key=.../hexkey=...: applies a single setting to
// an already-open connection, deriving and installing a codec if it wasn't
// keyed already.
func (db *DB) SetKey(keyParam, value string) error {
	settings := pragma.NewSettings()
	if err := settings.Apply(keyParam, value); err != nil {
		return err
	}
	state, err := pragma.Resolve(Registry, settings, db.path, false, readExistingSalt(db.path))
	if err != nil {
		return err
	}
	if err := db.keys.SetKey(state, 0); err != nil {
		return err
	}
	db.file.SetCodec(db.keys.Codec())
	return nil
}

// Rekey implements PRAGMA rekey=.../hexrekey=...: derives the new write
// cipher from value and drives the Manager's rekey transition. copier is
// invoked only when the reserved-bytes footprint actually changes; a nil
// copier in that case surfaces as a misuse error from the Manager.
func (db *DB) Rekey(rekeyParam, value string, copier rekey.PageCopier) error {
	settings := pragma.NewSettings()
	if err := settings.Apply(rekeyParam, value); err != nil {
		return err
	}
	state, err := pragma.Resolve(Registry, settings, db.path, true, nil)
	if err != nil {
		return err
	}
	if err := db.keys.Rekey(state, copier); err != nil {
		return err
	}
	db.file.SetCodec(db.keys.Codec())
	return nil
}

// Info describes the package's current registry configuration, mirroring
// the driver-introspection shape a database/sql-style facade exposes.
type Info struct {
	CipherCount int
	ShimName    string
}

// GetInfo returns a snapshot of the package's registry state.
func GetInfo() Info {
	return Info{CipherCount: Registry.Count(), ShimName: "sqlitecrypt"}
}
