package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jslhs/pyrit/internal/core/domain"
)

func sampleResultSet() domain.ResultSet {
	return domain.ResultSet{
		ESSID: "testnet",
		Results: []domain.PasswordPMK{
			{Password: "barbarbar", PMK: [32]byte{1, 2, 3}},
			{Password: "foofoofoo", PMK: [32]byte{4, 5, 6}},
		},
	}
}

func TestPYR2RoundTrip(t *testing.T) {
	rs := sampleResultSet()
	blob, err := encodePYR2(rs)
	require.NoError(t, err)

	got, err := decodeResultSet(rs.ESSID, blob)
	require.NoError(t, err)
	assert.Equal(t, rs.ESSID, got.ESSID)
	assert.Equal(t, rs.Results, got.Results)
}

func TestPYR2RejectsWrongESSID(t *testing.T) {
	rs := sampleResultSet()
	blob, err := encodePYR2(rs)
	require.NoError(t, err)

	_, err = decodeResultSet("othernet", blob)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func TestPYR2RejectsDigestMismatch(t *testing.T) {
	rs := sampleResultSet()
	blob, err := encodePYR2(rs)
	require.NoError(t, err)

	// Digest sits right after magic(4) + essidLen(2) + essid + count(4).
	digestOffset := 4 + 2 + len(rs.ESSID) + 4
	blob[digestOffset] ^= 0xFF

	_, err = decodeResultSet(rs.ESSID, blob)
	assert.True(t, errors.Is(err, domain.ErrDigest))
}

func TestPYR2EmptyResultSet(t *testing.T) {
	rs := domain.ResultSet{ESSID: "emptynet"}
	blob, err := encodePYR2(rs)
	require.NoError(t, err)

	got, err := decodeResultSet(rs.ESSID, blob)
	require.NoError(t, err)
	assert.Empty(t, got.Results)
}

func TestDecodeResultSetRejectsUnknownMagic(t *testing.T) {
	_, err := decodeResultSet("x", []byte("BADMAGICBYTES"))
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func TestDecodeResultSetPYRTMagicUsesDecompressedDigest(t *testing.T) {
	// The legacy PYRT format NUL-delimits passwords and digests the
	// *decompressed* bytes instead of the compressed ones. This test takes
	// a PYR2 blob and relabels it as PYRT to show the decoder dispatches on
	// the magic and applies the legacy digest rule.
	essid := "legacy"
	pws := []string{"barbarbar", "foofoofoo"}

	rs := domain.ResultSet{ESSID: essid, Results: []domain.PasswordPMK{
		{Password: pws[0], PMK: [32]byte{9}},
		{Password: pws[1], PMK: [32]byte{8}},
	}}
	blob, err := encodePYR2(rs)
	require.NoError(t, err)
	// Flip the magic to PYRT; this blob's digest was computed over
	// compressed bytes so it will mismatch under the legacy (decompressed)
	// digest rule. Only the magic dispatch and the digest check are
	// exercised; the NUL-delimited password parsing is not reached, and no
	// legacy encoder exists to build a valid PYRT blob.
	copy(blob[:4], pyrtMagic[:])
	_, err = decodeResultSet(essid, blob)
	assert.True(t, errors.Is(err, domain.ErrDigest))
}
