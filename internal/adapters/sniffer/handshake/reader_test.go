package handshake

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jslhs/pyrit/internal/core/domain"
)

func TestReadPCAPFileRejectsMissingFile(t *testing.T) {
	p := NewParser()
	err := p.ReadPCAPFile(filepath.Join(t.TempDir(), "does-not-exist.pcap"))
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func TestReadPCAPFileRejectsNonPCAPContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notapcap.pcap")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pcap file"), 0o644))

	p := NewParser()
	err := p.ReadPCAPFile(path)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}
