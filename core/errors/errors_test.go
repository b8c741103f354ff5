package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "plugin", ID: "test-plugin"},
			wantMsg:  "plugin not found: test-plugin",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "artifact"},
			wantMsg:  "artifact not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	// Test with underlying error separately
	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("disk error")
		err := &NotFoundError{Resource: "file", ID: "test.txt", Err: underlyingErr}
		if got := err.Error(); got != "file not found: test.txt" {
			t.Errorf("Error() = %q, want %q", got, "file not found: test.txt")
		}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestPermissionError(t *testing.T) {
	tests := []struct {
		name     string
		err      *PermissionError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "full context",
			err:      &PermissionError{Operation: "delete", Resource: "plugin", Reason: "external plugins disabled"},
			wantMsg:  "permission denied: cannot delete plugin: external plugins disabled",
			wantBase: ErrUnauthorized,
		},
		{
			name:     "reason only",
			err:      &PermissionError{Reason: "read-only mode"},
			wantMsg:  "permission denied: read-only mode",
			wantBase: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	// Test with underlying error separately
	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("access denied by OS")
		err := &PermissionError{Operation: "write", Resource: "file", Reason: "no access", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestIOError(t *testing.T) {
	baseErr := fmt.Errorf("permission denied")
	tests := []struct {
		name    string
		err     *IOError
		wantMsg string
	}{
		{
			name:    "with path",
			err:     &IOError{Operation: "read", Path: "/test/file.txt", Err: baseErr},
			wantMsg: "failed to read /test/file.txt: permission denied",
		},
		{
			name:    "without path",
			err:     &IOError{Operation: "write", Err: baseErr},
			wantMsg: "failed to write: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, baseErr) {
				t.Errorf("Unwrap() = %v, want %v", got, baseErr)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ParseError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with path",
			err:      &ParseError{Format: "JSON", Path: "manifest.json", Message: "unexpected EOF"},
			wantMsg:  "failed to parse JSON at manifest.json: unexpected EOF",
			wantBase: ErrInvalidInput,
		},
		{
			name:     "without path",
			err:      &ParseError{Format: "XML", Message: "malformed tag"},
			wantMsg:  "failed to parse XML: malformed tag",
			wantBase: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	// Test with underlying error separately
	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("json: unexpected token")
		err := &ParseError{Format: "JSON", Path: "config.json", Message: "invalid syntax", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestUnsupportedError(t *testing.T) {
	tests := []struct {
		name     string
		err      *UnsupportedError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with reason",
			err:      &UnsupportedError{Feature: "compression format", Reason: "lz4 not available"},
			wantMsg:  "unsupported compression format: lz4 not available",
			wantBase: ErrUnsupported,
		},
		{
			name:     "without reason",
			err:      &UnsupportedError{Feature: "format"},
			wantMsg:  "unsupported format",
			wantBase: ErrUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	// Test with underlying error separately
	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("codec not compiled")
		err := &UnsupportedError{Feature: "video codec", Reason: "h265 missing", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestHelperFunctions(t *testing.T) {
	t.Run("NewNotFound", func(t *testing.T) {
		err := NewNotFound("capsule", "test-id")
		if err.Resource != "capsule" || err.ID != "test-id" {
			t.Errorf("NewNotFound() = %+v, want Resource=capsule, ID=test-id", err)
		}
	})

	t.Run("NewPermission", func(t *testing.T) {
		err := NewPermission("write", "file", "read-only mode")
		if err.Operation != "write" || err.Resource != "file" || err.Reason != "read-only mode" {
			t.Errorf("NewPermission() = %+v, unexpected values", err)
		}
	})

	t.Run("NewIO", func(t *testing.T) {
		baseErr := fmt.Errorf("disk full")
		err := NewIO("write", "/tmp/test", baseErr)
		if err.Operation != "write" || err.Path != "/tmp/test" || err.Err != baseErr {
			t.Errorf("NewIO() = %+v, unexpected values", err)
		}
	})

	t.Run("NewParse", func(t *testing.T) {
		err := NewParse("YAML", "config.yaml", "invalid syntax")
		if err.Format != "YAML" || err.Path != "config.yaml" || err.Message != "invalid syntax" {
			t.Errorf("NewParse() = %+v, unexpected values", err)
		}
	})

	t.Run("NewUnsupported", func(t *testing.T) {
		err := NewUnsupported("codec", "not compiled in")
		if err.Feature != "codec" || err.Reason != "not compiled in" {
			t.Errorf("NewUnsupported() = %+v, unexpected values", err)
		}
	})
}

func TestWrap(t *testing.T) {
	t.Run("wraps error", func(t *testing.T) {
		baseErr := fmt.Errorf("base error")
		wrapped := Wrap(baseErr, "context message")
		if wrapped == nil {
			t.Fatal("Wrap() returned nil")
		}
		if !errors.Is(wrapped, baseErr) {
			t.Errorf("Wrap() error does not unwrap to base error")
		}
		wantMsg := "context message: base error"
		if wrapped.Error() != wantMsg {
			t.Errorf("Wrap() = %q, want %q", wrapped.Error(), wantMsg)
		}
	})

	t.Run("nil error returns nil", func(t *testing.T) {
		if got := Wrap(nil, "context"); got != nil {
			t.Errorf("Wrap(nil) = %v, want nil", got)
		}
	})
}

func TestWrapf(t *testing.T) {
	t.Run("wraps error with formatting", func(t *testing.T) {
		baseErr := fmt.Errorf("base error")
		wrapped := Wrapf(baseErr, "failed to process %s", "file.txt")
		if wrapped == nil {
			t.Fatal("Wrapf() returned nil")
		}
		if !errors.Is(wrapped, baseErr) {
			t.Errorf("Wrapf() error does not unwrap to base error")
		}
		wantMsg := "failed to process file.txt: base error"
		if wrapped.Error() != wantMsg {
			t.Errorf("Wrapf() = %q, want %q", wrapped.Error(), wantMsg)
		}
	})

	t.Run("nil error returns nil", func(t *testing.T) {
		if got := Wrapf(nil, "context %s", "test"); got != nil {
			t.Errorf("Wrapf(nil) = %v, want nil", got)
		}
	})
}

func TestMisuseError(t *testing.T) {
	tests := []struct {
		name     string
		err      *MisuseError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with operation",
			err:      &MisuseError{Operation: "rekey", Reason: "rekey already in progress"},
			wantMsg:  "misuse: rekey: rekey already in progress",
			wantBase: ErrMisuse,
		},
		{
			name:     "without operation",
			err:      &MisuseError{Reason: "cannot set key on WAL-mode database"},
			wantMsg:  "misuse: cannot set key on WAL-mode database",
			wantBase: ErrMisuse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
			if got := tt.err.Code(); got != CodeMisuse {
				t.Errorf("Code() = %v, want %v", got, CodeMisuse)
			}
		})
	}

	t.Run("NewMisuse", func(t *testing.T) {
		err := NewMisuse("rekey", "savepoint open")
		if err.Operation != "rekey" || err.Reason != "savepoint open" {
			t.Errorf("NewMisuse() = %+v, unexpected values", err)
		}
	})
}

func TestCorruptError(t *testing.T) {
	err := &CorruptError{Pgno: 42, Reason: "hmac mismatch"}
	wantMsg := "corrupt page 42: hmac mismatch"
	if got := err.Error(); got != wantMsg {
		t.Errorf("Error() = %q, want %q", got, wantMsg)
	}
	if got := err.Unwrap(); !errors.Is(got, ErrCorrupt) {
		t.Errorf("Unwrap() = %v, want %v", got, ErrCorrupt)
	}
	if got := err.Code(); got != CodeCorrupt {
		t.Errorf("Code() = %v, want %v", got, CodeCorrupt)
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("tag verification failed")
		err := &CorruptError{Pgno: 7, Reason: "bad tag", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})

	t.Run("NewCorrupt", func(t *testing.T) {
		err := NewCorrupt(3, "short page")
		if err.Pgno != 3 || err.Reason != "short page" {
			t.Errorf("NewCorrupt() = %+v, unexpected values", err)
		}
	})
}

func TestNotADBError(t *testing.T) {
	err := &NotADBError{Reason: "page 1 hmac mismatch"}
	wantMsg := "file is not a database: page 1 hmac mismatch"
	if got := err.Error(); got != wantMsg {
		t.Errorf("Error() = %q, want %q", got, wantMsg)
	}
	if got := err.Unwrap(); !errors.Is(got, ErrNotADB) {
		t.Errorf("Unwrap() = %v, want %v", got, ErrNotADB)
	}
	if got := err.Code(); got != CodeNotADB {
		t.Errorf("Code() = %v, want %v", got, CodeNotADB)
	}

	t.Run("NewNotADB", func(t *testing.T) {
		err := NewNotADB("wrong key")
		if err.Reason != "wrong key" {
			t.Errorf("NewNotADB() = %+v, unexpected values", err)
		}
	})
}

func TestParamError(t *testing.T) {
	t.Run("unknown parameter", func(t *testing.T) {
		err := NewParamUnknown("frobnicate")
		wantMsg := "unknown parameter: frobnicate"
		if got := err.Error(); got != wantMsg {
			t.Errorf("Error() = %q, want %q", got, wantMsg)
		}
		if got := err.Unwrap(); !errors.Is(got, ErrNotFound) {
			t.Errorf("Unwrap() = %v, want %v", got, ErrNotFound)
		}
		if got := err.Code(); got != CodeNotFound {
			t.Errorf("Code() = %v, want %v", got, CodeNotFound)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		err := NewParamInvalid("kdf_iter", "-1", "must be positive")
		wantMsg := `invalid value for kdf_iter="-1": must be positive`
		if got := err.Error(); got != wantMsg {
			t.Errorf("Error() = %q, want %q", got, wantMsg)
		}
		if got := err.Unwrap(); !errors.Is(got, ErrInvalidInput) {
			t.Errorf("Unwrap() = %v, want %v", got, ErrInvalidInput)
		}
		if got := err.Code(); got != CodeError {
			t.Errorf("Code() = %v, want %v", got, CodeError)
		}
	})
}

func TestErrCodeString(t *testing.T) {
	tests := []struct {
		code ErrCode
		want string
	}{
		{CodeOK, "OK"},
		{CodeError, "ERROR"},
		{CodeNoMem, "NOMEM"},
		{CodeCorrupt, "CORRUPT"},
		{CodeNotADB, "NOTADB"},
		{CodeIOErrShortRead, "IOERR_SHORT_READ"},
		{CodeReadOnly, "READONLY"},
		{CodeNotFound, "NOTFOUND"},
		{CodeMisuse, "MISUSE"},
		{ErrCode(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestIs(t *testing.T) {
	err := &NotFoundError{Resource: "test"}
	if !Is(err, ErrNotFound) {
		t.Error("Is() failed to match NotFoundError to ErrNotFound")
	}
}

func TestAs(t *testing.T) {
	err := &NotFoundError{Resource: "test", ID: "123"}
	var nfErr *NotFoundError
	if !As(err, &nfErr) {
		t.Error("As() failed to match NotFoundError")
	}
	if nfErr.ID != "123" {
		t.Errorf("As() nfErr.ID = %q, want %q", nfErr.ID, "123")
	}
}
