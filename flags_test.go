package randomx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendedFlagsStable(t *testing.T) {
	f := RecommendedFlags()
	assert.Equal(t, f, RecommendedFlags())
	_, err := ParseFlags(uint32(f))
	assert.NoError(t, err)
	assert.False(t, f.Has(FlagFullMem), "recommended flags never demand a dataset")
}

func TestCombine(t *testing.T) {
	all := []Flags{FlagDefault, FlagLargePages, FlagHardAES, FlagFullMem, FlagJIT, FlagSecure, FlagArgon2SSSE3, FlagArgon2AVX2}
	for _, a := range all {
		for _, b := range all {
			assert.Equal(t, Combine(a, b), Combine(b, a))
			assert.True(t, Combine(a, b).Has(a))
			for _, c := range all {
				assert.Equal(t, Combine(Combine(a, b), c), Combine(a, Combine(b, c)))
			}
		}
	}
	assert.Equal(t, FlagArgon2, FlagArgon2SSSE3.With(FlagArgon2AVX2))
	assert.Equal(t, FlagJIT, Combine(FlagJIT, FlagDefault))
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags(uint32(FlagHardAES | FlagJIT))
	require.NoError(t, err)
	assert.Equal(t, FlagHardAES|FlagJIT, f)

	_, err = ParseFlags(1 << 20)
	assert.ErrorIs(t, err, ErrInvalidFlags)
}

func TestParseFlagNames(t *testing.T) {
	cases := []struct {
		in   string
		want Flags
	}{
		{"", FlagDefault},
		{"default", FlagDefault},
		{"hard-aes", FlagHardAES},
		{"Hard-AES, jit", FlagHardAES | FlagJIT},
		{"argon2,secure", FlagArgon2 | FlagSecure},
		{"large-pages,full-mem", FlagLargePages | FlagFullMem},
	}
	for _, tc := range cases {
		got, err := ParseFlagNames(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	got, err := ParseFlagNames("recommended")
	require.NoError(t, err)
	assert.Equal(t, RecommendedFlags(), got)

	_, err = ParseFlagNames("hard-aes,turbo")
	assert.ErrorIs(t, err, ErrInvalidFlags)
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "default", FlagDefault.String())
	assert.Equal(t, "hard-aes|jit", (FlagHardAES | FlagJIT).String())
	assert.Equal(t, "argon2-ssse3|argon2-avx2", FlagArgon2.String())

	round, err := ParseFlagNames("large-pages,secure")
	require.NoError(t, err)
	assert.Equal(t, "large-pages|secure", round.String())
}
