package cowpatty

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jslhs/pyrit/internal/core/domain"
)

func TestExportImportRoundTrip(t *testing.T) {
	results := []domain.PasswordPMK{
		{Password: "barbarbar", PMK: [32]byte{1, 2, 3}},
		{Password: "foofoofoo", PMK: [32]byte{4, 5, 6}},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "testnet", results))

	essid, got, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, "testnet", essid)
	assert.Equal(t, results, got)
}

func TestExportRejectsInvalidESSID(t *testing.T) {
	var buf bytes.Buffer
	err := Export(&buf, "", nil)
	assert.True(t, errors.Is(err, domain.ErrValue))
}

func TestExportSkipsOverlongPasswords(t *testing.T) {
	overlong := make([]byte, 300)
	for i := range overlong {
		overlong[i] = 'a'
	}
	results := []domain.PasswordPMK{
		{Password: "barbarbar", PMK: [32]byte{1}},
		{Password: string(overlong), PMK: [32]byte{2}},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "testnet", results))

	_, got, err := Import(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "barbarbar", got[0].Password)
}

func TestImportRejectsBadMagic(t *testing.T) {
	_, _, err := Import(bytes.NewReader([]byte("NOTAVALIDHEADERATALL")))
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func TestImportRejectsTruncatedRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "testnet", []domain.PasswordPMK{{Password: "barbarbar", PMK: [32]byte{1}}}))

	truncated := buf.Bytes()[:buf.Len()-5]
	_, _, err := Import(bytes.NewReader(truncated))
	assert.True(t, errors.Is(err, domain.ErrStorage))
}
