package cipher

import (
	"sync"

	"github.com/klauspost/cpuid/v2"

	"github.com/pagecrypt/sqlitecrypt/internal/logging"
)

var logAESFeaturesOnce sync.Once

// logAESFeatures reports, once per process, whether the running CPU
// offers hardware AES acceleration. crypto/aes already dispatches to
// AES-NI/ARMv8-AES internally and produces byte-identical ciphertext
// either way; this is purely an observability hook so operators can
// confirm which path a deployment is actually taking.
func logAESFeatures() {
	logAESFeaturesOnce.Do(func() {
		logging.Info("aes_hardware_acceleration",
			"aesni", cpuid.CPU.Supports(cpuid.AESNI),
			"arm_aes", cpuid.CPU.Supports(cpuid.AESARM),
			"brand", cpuid.CPU.BrandName,
		)
	})
}
