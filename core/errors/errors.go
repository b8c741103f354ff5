// Package errors provides standardized error types and helpers for the sqlitecrypt module.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized indicates insufficient permissions
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "plugin", "artifact", "capsule")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// PermissionError represents an authorization/permission error
type PermissionError struct {
	Operation string // Operation that was attempted
	Resource  string // Resource being accessed
	Reason    string // Why permission was denied
	Err       error  // Underlying error, if any
}

func (e *PermissionError) Error() string {
	if e.Operation != "" && e.Resource != "" {
		return fmt.Sprintf("permission denied: cannot %s %s: %s", e.Operation, e.Resource, e.Reason)
	}
	return fmt.Sprintf("permission denied: %s", e.Reason)
}

func (e *PermissionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnauthorized
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "JSON", "XML", "manifest")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewPermission creates a PermissionError
func NewPermission(operation, resource, reason string) *PermissionError {
	return &PermissionError{
		Operation: operation,
		Resource:  resource,
		Reason:    reason,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// ErrCode is the historical SQLite-style result code this error taxonomy
// maps onto, so callers that need a numeric code (e.g. a database/sql/driver
// adapter) can recover one from a Go error.
type ErrCode int

const (
	CodeOK ErrCode = iota
	CodeError
	CodeNoMem
	CodeCorrupt
	CodeNotADB
	CodeIOErrShortRead
	CodeReadOnly
	CodeNotFound
	CodeMisuse
)

func (c ErrCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeError:
		return "ERROR"
	case CodeNoMem:
		return "NOMEM"
	case CodeCorrupt:
		return "CORRUPT"
	case CodeNotADB:
		return "NOTADB"
	case CodeIOErrShortRead:
		return "IOERR_SHORT_READ"
	case CodeReadOnly:
		return "READONLY"
	case CodeNotFound:
		return "NOTFOUND"
	case CodeMisuse:
		return "MISUSE"
	default:
		return "UNKNOWN"
	}
}

// Sentinel errors for the page-level crypto shim's own error taxonomy.
var (
	// ErrMisuse indicates the caller used the API incorrectly (e.g. a
	// double rekey in flight, or a key operation on a WAL-mode database).
	ErrMisuse = errors.New("misuse")
	// ErrCorrupt indicates MAC verification or structural validation
	// failed on a page other than page 1.
	ErrCorrupt = errors.New("database disk image is malformed")
	// ErrNotADB indicates MAC or format failure on page 1 — this
	// distinguishes "wrong key" from "file damage" for the caller.
	ErrNotADB = errors.New("file is not a database")
	// ErrReadOnly indicates a write was attempted against a read-only codec or file.
	ErrReadOnly = errors.New("attempt to write a readonly database")
	// ErrShortRead indicates a short read at a page boundary.
	ErrShortRead = errors.New("short read")
)

// MisuseError represents an API-misuse error, such as rekeying a database
// that is already mid-rekey, or keying a WAL-mode database.
type MisuseError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *MisuseError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("misuse: %s: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("misuse: %s", e.Reason)
}

func (e *MisuseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrMisuse
}

func (e *MisuseError) Code() ErrCode { return CodeMisuse }

// NewMisuse creates a MisuseError.
func NewMisuse(operation, reason string) *MisuseError {
	return &MisuseError{Operation: operation, Reason: reason}
}

// CorruptError represents a MAC-verification or structural failure on a
// non-page-1 page.
type CorruptError struct {
	Pgno   uint32
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt page %d: %s", e.Pgno, e.Reason)
}

func (e *CorruptError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrCorrupt
}

func (e *CorruptError) Code() ErrCode { return CodeCorrupt }

// NewCorrupt creates a CorruptError for the given page number.
func NewCorrupt(pgno uint32, reason string) *CorruptError {
	return &CorruptError{Pgno: pgno, Reason: reason}
}

// NotADBError represents a MAC or format failure on page 1, which signals
// "wrong key" rather than on-disk corruption elsewhere in the file.
type NotADBError struct {
	Reason string
	Err    error
}

func (e *NotADBError) Error() string {
	return fmt.Sprintf("file is not a database: %s", e.Reason)
}

func (e *NotADBError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotADB
}

func (e *NotADBError) Code() ErrCode { return CodeNotADB }

// NewNotADB creates a NotADBError.
func NewNotADB(reason string) *NotADBError {
	return &NotADBError{Reason: reason}
}

// ParamError represents an unknown parameter name, out-of-range value, or
// malformed hex string passed through a URI or PRAGMA.
type ParamError struct {
	Name    string
	Value   string
	Reason  string
	Unknown bool // true if the parameter name itself is unrecognized
}

func (e *ParamError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("unknown parameter: %s", e.Name)
	}
	return fmt.Sprintf("invalid value for %s=%q: %s", e.Name, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error {
	if e.Unknown {
		return ErrNotFound
	}
	return ErrInvalidInput
}

func (e *ParamError) Code() ErrCode {
	if e.Unknown {
		return CodeNotFound
	}
	return CodeError
}

// NewParamUnknown creates a ParamError for an unrecognized parameter name.
func NewParamUnknown(name string) *ParamError {
	return &ParamError{Name: name, Unknown: true}
}

// NewParamInvalid creates a ParamError for a recognized parameter with an
// invalid value.
func NewParamInvalid(name, value, reason string) *ParamError {
	return &ParamError{Name: name, Value: value, Reason: reason}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
