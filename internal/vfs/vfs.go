package vfs

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/pagecrypt/sqlitecrypt/internal/codec"
	"github.com/pagecrypt/sqlitecrypt/internal/logging"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
)

// CodecLookup resolves a MAIN_DB path to its codec, normally backed by the
// connection registry set_key populates. A nil return means "no key
// installed yet"; the file then behaves as a plain pass-through.
type CodecLookup func(path string) *codec.Codec

// Shim wraps an underlying VFS by pointer, intercepting every read and write
// to classify the target file and run it through the owning codec. Delete,
// access, and full-pathname delegate straight through to the underlying
// VFS; randomness, sleep, and current time are served from the Go runtime,
// and the dlopen family loads nothing.
type Shim struct {
	name       string
	underlying Underlying
	registry   *Registry
	lookup     CodecLookup
}

// NewShim constructs a shim named name wrapping underlying (OSUnderlying{}
// if nil), resolving MAIN_DB codecs through lookup.
func NewShim(name string, underlying Underlying, lookup CodecLookup) *Shim {
	if underlying == nil {
		underlying = OSUnderlying{}
	}
	return &Shim{name: name, underlying: underlying, registry: NewRegistry(), lookup: lookup}
}

// Name returns the shim's registered VFS name.
func (s *Shim) Name() string { return s.name }

// Open classifies path by flags, opens it through the underlying VFS, and
// for MAIN_DB registers the resulting node; for journal-family and WAL files
// it resolves the owning MAIN_DB node from dbParam (the journal's database=
// URI parameter, or path itself when dbParam is empty).
func (s *Shim) Open(path string, flags OpenFlag, dbParam string) (*File, error) {
	class := Classify(flags)

	uf, err := s.underlying.Open(path, flags)
	if err != nil {
		return nil, apperrors.NewIO("open", path, err)
	}

	f := newFile(uf, path, class)

	switch class {
	case ClassMainDB:
		if s.lookup != nil {
			f.codec = s.lookup(path)
		}
		s.registry.Register(path, f)
		logging.FileClassified(path, class.String(), true)

	case ClassMainJournal, ClassSubJournal, ClassWAL:
		owner := dbParam
		if owner == "" {
			owner = path
		}
		f.main = s.registry.Lookup(owner)
		logging.FileClassified(path, class.String(), false)

	default:
		logging.FileClassified(path, class.String(), false)
	}

	return f, nil
}

// Close removes a MAIN_DB handle from the registry before closing it. A
// stale back-reference left in an already-open journal/WAL handle is
// tolerated: its ownerCodec lookup then returns nil and the handle falls
// back to pass-through.
func (s *Shim) Close(f *File) error {
	if f.Class() == ClassMainDB {
		s.registry.Unregister(f.Path())
	}
	return f.Close()
}

// Delete forwards to the underlying VFS.
func (s *Shim) Delete(path string, syncDir bool) error {
	return s.underlying.Delete(path, syncDir)
}

// Access forwards to the underlying VFS.
func (s *Shim) Access(path string, flags AccessFlag) (bool, error) {
	return s.underlying.Access(path, flags)
}

// FullPathname forwards to the underlying VFS.
func (s *Shim) FullPathname(path string) (string, error) {
	return s.underlying.FullPathname(path)
}

// DlOpen and DlClose are no-ops and DlSym always returns an unsupported
// error: the shim never loads engine extensions itself, and the underlying
// VFS here is a pure Go process with no dynamic-loading support at all.
// There is no DlError method.
func (s *Shim) DlOpen(string) (uintptr, error) { return 0, nil }
func (s *Shim) DlSym(uintptr, string) (uintptr, error) {
	return 0, apperrors.NewUnsupported("dlsym", "shim has no dynamic-loading support")
}
func (s *Shim) DlClose(uintptr) {}

// Randomness fills n bytes from the process's cryptographic RNG.
func (s *Shim) Randomness(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Sleep blocks for d and reports the duration actually slept.
func (s *Shim) Sleep(d time.Duration) time.Duration {
	time.Sleep(d)
	return d
}

// CurrentTime returns the current wall-clock time.
func (s *Shim) CurrentTime() time.Time {
	return time.Now()
}

// FileControlVFSName implements spec §4.6's "the shim appends its own name
// to the VFSNAME response": base is whatever the wrapped VFS chain already
// reported (empty if this shim is innermost).
func (s *Shim) FileControlVFSName(base string) string {
	if base == "" {
		return s.name
	}
	return strings.Join([]string{base, s.name}, "/")
}
