package pragma

import "testing"

func TestApplyURIQueryRecognizedParams(t *testing.T) {
	s := NewSettings()
	if err := s.ApplyURIQuery("cipher=sqlcipher&kdf_iter=1000&key=hunter2&legacy=4"); err != nil {
		t.Fatal(err)
	}
	if s.CipherName != "sqlcipher" {
		t.Errorf("CipherName = %q, want sqlcipher", s.CipherName)
	}
	if s.Key != "hunter2" {
		t.Errorf("Key = %q, want hunter2", s.Key)
	}
	if s.Overrides["kdf_iter"] != 1000 {
		t.Errorf("kdf_iter override = %d, want 1000", s.Overrides["kdf_iter"])
	}
	if s.Overrides["legacy"] != 4 {
		t.Errorf("legacy override = %d, want 4", s.Overrides["legacy"])
	}
}

func TestApplyHexKeyValidation(t *testing.T) {
	s := NewSettings()
	if err := s.Apply("hexkey", "deadbeef"); err != nil {
		t.Fatal(err)
	}
	if s.HexKey != "deadbeef" {
		t.Errorf("HexKey = %q, want deadbeef", s.HexKey)
	}

	s2 := NewSettings()
	if err := s2.Apply("hexkey", "xyz"); err == nil {
		t.Error("expected a non-hex hexkey to be rejected")
	}
	s3 := NewSettings()
	if err := s3.Apply("hexkey", "abc"); err == nil {
		t.Error("expected an odd-length hexkey to be rejected")
	}
}

func TestApplyCipherSaltValidation(t *testing.T) {
	s := NewSettings()
	salt := "00112233445566778899aabbccddeeff"
	if err := s.Apply("cipher_salt", salt); err != nil {
		t.Fatal(err)
	}
	if s.CipherSalt != salt {
		t.Errorf("CipherSalt = %q, want %q", s.CipherSalt, salt)
	}

	s2 := NewSettings()
	if err := s2.Apply("cipher_salt", "tooshort"); err == nil {
		t.Error("expected a short cipher_salt to be rejected")
	}
}

func TestApplyMemorySecurityValidation(t *testing.T) {
	s := NewSettings()
	if err := s.Apply("memory_security", "lock"); err != nil {
		t.Fatal(err)
	}
	if s.MemorySecurity != "lock" {
		t.Errorf("MemorySecurity = %q, want lock", s.MemorySecurity)
	}

	s2 := NewSettings()
	if err := s2.Apply("memory_security", "bogus"); err == nil {
		t.Error("expected an unrecognized memory_security value to be rejected")
	}
}

func TestApplyUnknownNonIntegerIsRejected(t *testing.T) {
	s := NewSettings()
	if err := s.Apply("hmac_use", "not-a-number"); err == nil {
		t.Error("expected a non-integer cipher-tunable value to be rejected")
	}
}

func TestEffectiveKeyPrecedence(t *testing.T) {
	s := NewSettings()
	s.Key = "plain"
	s.TextKey = "text"
	s.HexKey = "cafe"
	if got := s.effectiveKey(false); got != "x'cafe'" {
		t.Errorf("effectiveKey = %q, want x'cafe' (hexkey wins)", got)
	}

	s2 := NewSettings()
	s2.Key = "plain"
	s2.TextKey = "text"
	if got := s2.effectiveKey(false); got != "text" {
		t.Errorf("effectiveKey = %q, want text (textkey beats key)", got)
	}

	s3 := NewSettings()
	s3.Key = "plain"
	if got := s3.effectiveKey(false); got != "plain" {
		t.Errorf("effectiveKey = %q, want plain", got)
	}

	s4 := NewSettings()
	s4.Rekey = "newplain"
	s4.HexRekey = "beef"
	if got := s4.effectiveKey(true); got != "x'beef'" {
		t.Errorf("effectiveKey(rekeying) = %q, want x'beef'", got)
	}
}
