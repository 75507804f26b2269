package randomx

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/Giulio2002/randomx/internal/engine"
)

// Flags selects optional engine features.
type Flags uint32

const (
	FlagDefault     = Flags(engine.FlagDefault)
	FlagLargePages  = Flags(engine.FlagLargePages)
	FlagHardAES     = Flags(engine.FlagHardAES)
	FlagFullMem     = Flags(engine.FlagFullMem)
	FlagJIT         = Flags(engine.FlagJIT)
	FlagSecure      = Flags(engine.FlagSecure)
	FlagArgon2SSSE3 = Flags(engine.FlagArgon2SSSE3)
	FlagArgon2AVX2  = Flags(engine.FlagArgon2AVX2)
	FlagArgon2      = FlagArgon2SSSE3 | FlagArgon2AVX2
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagLargePages, "large-pages"},
	{FlagHardAES, "hard-aes"},
	{FlagFullMem, "full-mem"},
	{FlagJIT, "jit"},
	{FlagSecure, "secure"},
	{FlagArgon2SSSE3, "argon2-ssse3"},
	{FlagArgon2AVX2, "argon2-avx2"},
}

// RecommendedFlags asks the engine which flags suit this host.
func RecommendedFlags() Flags { return Flags(defaultEngine.Flags() & engine.FlagMask) }

// Combine returns the union of a and b.
func Combine(a, b Flags) Flags { return a | b }

// With returns the union of f and o.
func (f Flags) With(o Flags) Flags { return Combine(f, o) }

// Has reports whether every bit of o is set in f.
func (f Flags) Has(o Flags) bool { return f&o == o }

// ParseFlags converts raw engine bits, rejecting bits no engine defines.
func ParseFlags(raw uint32) (Flags, error) {
	if err := checkFlags("ParseFlags", Flags(raw)); err != nil {
		return 0, err
	}
	return Flags(raw), nil
}

// checkFlags rejects bits the engine does not define. Flags built from the
// exported constants always pass; a raw conversion may not.
func checkFlags(op string, f Flags) error {
	if unknown := uint32(f) &^ engine.FlagMask; unknown != 0 {
		return opError(op, KindInvalidFlags, "unknown bits %#x", unknown)
	}
	return nil
}

// ParseFlagNames parses a comma-separated list such as "hard-aes,jit".
// "default" adds nothing, "recommended" adds RecommendedFlags and "argon2"
// adds both Argon2 variants.
func ParseFlagNames(s string) (Flags, error) {
	var f Flags
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		switch name {
		case "", "default":
			continue
		case "recommended":
			f |= RecommendedFlags()
			continue
		case "argon2":
			f |= FlagArgon2
			continue
		}
		known := false
		for _, n := range flagNames {
			if n.name == name {
				f |= n.f
				known = true
				break
			}
		}
		if !known {
			return 0, &Error{Op: "ParseFlagNames", Kind: KindInvalidFlags, Detail: fmt.Sprintf("unknown flag %q", part)}
		}
	}
	return f, nil
}

// String lists the set flags joined by "|", or "default".
func (f Flags) String() string {
	if f == FlagDefault {
		return "default"
	}
	parts := make([]string, 0, bits.OnesCount32(uint32(f)))
	for _, n := range flagNames {
		if f&n.f != 0 {
			parts = append(parts, n.name)
		}
	}
	if rest := uint32(f) &^ engine.FlagMask; rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", rest))
	}
	return strings.Join(parts, "|")
}
