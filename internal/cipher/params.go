package cipher

import (
	"strconv"
	"strings"
	"sync"

	apperrors "github.com/pagecrypt/sqlitecrypt/core/errors"
)

// Scope selects which of a parameter's three views an operation targets.
type Scope int

const (
	// ScopeCurrent targets the live, in-effect value.
	ScopeCurrent Scope = iota
	// ScopeDefault targets the compile-time/registration default, via
	// the "default:" name prefix.
	ScopeDefault
	// ScopeMin targets the minimum bound, via the "min:" name prefix.
	ScopeMin
	// ScopeMax targets the maximum bound, via the "max:" name prefix.
	ScopeMax
)

// ParseScope splits a possibly-prefixed parameter name into its scope and
// bare name, e.g. "default:kdf_iter" -> (ScopeDefault, "kdf_iter").
func ParseScope(name string) (Scope, string) {
	switch {
	case strings.HasPrefix(name, "default:"):
		return ScopeDefault, strings.TrimPrefix(name, "default:")
	case strings.HasPrefix(name, "min:"):
		return ScopeMin, strings.TrimPrefix(name, "min:")
	case strings.HasPrefix(name, "max:"):
		return ScopeMax, strings.TrimPrefix(name, "max:")
	default:
		return ScopeCurrent, name
	}
}

// Param is one named, bounded integer tunable: kdf_iter, hmac_use,
// legacy, and so on. A Param is not safe for concurrent use directly;
// callers go through a Table, which serializes access.
type Param struct {
	Name    string
	Current int64
	Default int64
	Min     int64
	Max     int64

	// WriteOnceAtDefault marks a parameter (hmac_check is the one the
	// engine specifies) that may only be written once at default scope;
	// subsequent default-scope writes are rejected as misuse.
	WriteOnceAtDefault bool
	writtenAtDefault   bool
}

func (p *Param) valid() bool {
	return p.Name != "" && p.Min <= p.Default && p.Default <= p.Max && p.Min <= p.Current && p.Current <= p.Max
}

func (p *Param) clone() *Param {
	c := *p
	return &c
}

// Table is a named-parameter table: the global, process-wide table or a
// per-connection clone of it. Guarded by a RWMutex because lookups
// dominate writes (every page codec call may read kdf_iter/hmac_use).
type Table struct {
	mu     sync.RWMutex
	params map[string]*Param
}

// NewTable builds a Table from a set of parameter templates, deep-copying
// each one. Returns a ParamError if any entry is malformed.
func NewTable(params []Param) (*Table, error) {
	t := &Table{params: make(map[string]*Param, len(params))}
	for i := range params {
		p := params[i].clone()
		if !p.valid() {
			return nil, apperrors.NewParamInvalid(p.Name, "", "min <= default <= max and min <= current <= max must hold")
		}
		t.params[strings.ToLower(p.Name)] = p
	}
	return t, nil
}

// Clone deep-copies this table for use as a per-connection table.
func (t *Table) Clone() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c := &Table{params: make(map[string]*Param, len(t.params))}
	for k, p := range t.params {
		c.params[k] = p.clone()
	}
	return c
}

// Get reads a parameter's value at the given scope.
func (t *Table) Get(scope Scope, name string) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.params[strings.ToLower(name)]
	if !ok {
		return 0, apperrors.NewParamUnknown(name)
	}
	switch scope {
	case ScopeDefault:
		return p.Default, nil
	case ScopeMin:
		return p.Min, nil
	case ScopeMax:
		return p.Max, nil
	default:
		return p.Current, nil
	}
}

// Set writes a parameter's value at the given scope, validating against
// the parameter's min/max bounds and the hmac_check-style write-once rule.
func (t *Table) Set(scope Scope, name string, value int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.params[strings.ToLower(name)]
	if !ok {
		return apperrors.NewParamUnknown(name)
	}
	if value < p.Min || value > p.Max {
		return apperrors.NewParamInvalid(name, strconv.FormatInt(value, 10), "out of range")
	}
	switch scope {
	case ScopeDefault:
		if p.WriteOnceAtDefault && p.writtenAtDefault {
			return apperrors.NewMisuse("set_param", name+" is write-once at default scope")
		}
		p.Default = value
		p.writtenAtDefault = true
	case ScopeMin:
		p.Min = value
	case ScopeMax:
		p.Max = value
	default:
		p.Current = value
	}
	return nil
}

// SetByPrefixedName is the URI/PRAGMA entry point: it accepts a possibly
// "default:"/"min:"/"max:"-prefixed name and dispatches to Set.
func (t *Table) SetByPrefixedName(name string, value int64) error {
	scope, bare := ParseScope(name)
	return t.Set(scope, bare, value)
}
