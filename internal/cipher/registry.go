package cipher

import (
	"strings"
	"sync"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
	"github.com/pagecrypt/sqlitecrypt/internal/logging"
)

// MaxCiphers bounds the process-wide registry, mirroring the engine's
// compile-time cap on the number of coexisting named page-ciphers.
const MaxCiphers = 32

// entry pairs a registered Descriptor with its global parameter table.
type entry struct {
	desc   Descriptor
	params *Table
}

// Registry is the process-wide table of named ciphers. The zero value is
// not usable; construct with NewRegistry. A single package-level instance
// (DefaultRegistry) backs the cipher= parameter and PRAGMA cipher=NAME.
type Registry struct {
	mu            sync.Mutex
	byName        map[string]int // lowercase name -> 1-based index
	byIndex       []*entry       // byIndex[0] is cipher index 1
	defaultCipher string
}

// NewRegistry constructs an empty cipher registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]int),
	}
}

// DefaultRegistry is the process-wide registry used when no explicit
// Registry is threaded through (mirrors the engine's single static
// cipher table).
var DefaultRegistry = NewRegistry()

// Register validates and adds a cipher descriptor to the registry. It
// deep-copies params. If makeDefault is true, the registry's notion of
// "the default cipher" is updated to this one. Returns the cipher's
// 1-based index.
func (r *Registry) Register(desc Descriptor, params []Param, makeDefault bool) (int, error) {
	if desc == nil {
		return 0, apperrors.NewMisuse("register_cipher", "nil descriptor")
	}
	name := desc.Name()
	if name == "" || len(name) > 63 {
		return 0, apperrors.NewParamInvalid("name", name, "must be 1-63 characters")
	}
	if !isValidCipherName(name) {
		return 0, apperrors.NewParamInvalid("name", name, "must be alphanumeric/underscore")
	}

	table, err := NewTable(params)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.byIndex) >= MaxCiphers {
		return 0, apperrors.NewMisuse("register_cipher", "cipher registry is full")
	}
	lower := strings.ToLower(name)
	if _, exists := r.byName[lower]; exists {
		return 0, apperrors.NewMisuse("register_cipher", "cipher name already registered: "+name)
	}

	e := &entry{desc: desc, params: table}
	r.byIndex = append(r.byIndex, e)
	idx := len(r.byIndex) // 1-based
	r.byName[lower] = idx

	if makeDefault {
		r.defaultCipher = lower
	}

	logging.CipherRegistered(name, idx, makeDefault)
	return idx, nil
}

// Lookup resolves a cipher by case-insensitive name.
func (r *Registry) Lookup(name string) (Descriptor, *Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, nil, apperrors.NewParamUnknown(name)
	}
	e := r.byIndex[idx-1]
	return e.desc, e.params, nil
}

// LookupByIndex resolves a cipher by its 1-based registration index.
func (r *Registry) LookupByIndex(idx int) (Descriptor, *Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 1 || idx > len(r.byIndex) {
		return nil, nil, apperrors.NewParamInvalid("cipher_index", "", "out of range")
	}
	e := r.byIndex[idx-1]
	return e.desc, e.params, nil
}

// Default returns the descriptor currently marked as the default cipher.
func (r *Registry) Default() (Descriptor, *Table, error) {
	r.mu.Lock()
	name := r.defaultCipher
	r.mu.Unlock()
	if name == "" {
		return nil, nil, apperrors.NewNotFound("cipher", "default")
	}
	return r.Lookup(name)
}

// Count returns the number of registered ciphers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byIndex)
}

func isValidCipherName(name string) bool {
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
