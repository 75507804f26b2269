package soft

import (
	"golang.org/x/sys/cpu"

	"github.com/Giulio2002/randomx/internal/engine"
)

func hasAES() bool { return cpu.X86.HasAES || cpu.ARM64.HasAES }

// hostFlags reports the features this host can honour. Large pages are never
// recommended; whether they can be mapped is only known at allocation time.
func hostFlags() uint32 {
	var f uint32
	if hasAES() {
		f |= engine.FlagHardAES
	}
	if cpu.X86.HasSSSE3 {
		f |= engine.FlagArgon2SSSE3
	}
	if cpu.X86.HasAVX2 {
		f |= engine.FlagArgon2AVX2
	}
	return f
}
