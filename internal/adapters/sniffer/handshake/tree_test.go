package handshake

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jslhs/pyrit/internal/core/domain"
)

func TestFindAccessPointExactBSSIDWins(t *testing.T) {
	p := NewParser()
	ap := p.accessPoint("aa:bb:cc:dd:ee:ff")
	ap.ESSID = "somenet"
	ap.ESSIDKnown = true

	got, err := p.FindAccessPoint("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Same(t, ap, got)
}

func TestFindAccessPointUniqueESSIDMatch(t *testing.T) {
	p := NewParser()
	ap := p.accessPoint("aa:bb:cc:dd:ee:ff")
	ap.ESSID = "homenet"
	ap.ESSIDKnown = true

	got, err := p.FindAccessPoint("homenet")
	require.NoError(t, err)
	assert.Same(t, ap, got)
}

func TestFindAccessPointAmbiguousESSID(t *testing.T) {
	p := NewParser()
	ap1 := p.accessPoint("aa:bb:cc:dd:ee:01")
	ap1.ESSID = "dupnet"
	ap1.ESSIDKnown = true
	ap2 := p.accessPoint("aa:bb:cc:dd:ee:02")
	ap2.ESSID = "dupnet"
	ap2.ESSIDKnown = true

	_, err := p.FindAccessPoint("dupnet")
	assert.True(t, errors.Is(err, domain.ErrAmbiguousAP))
}

func TestFindAccessPointNotFound(t *testing.T) {
	p := NewParser()
	_, err := p.FindAccessPoint("nosuchnet")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFindAccessPointIgnoresUnknownESSID(t *testing.T) {
	p := NewParser()
	ap := p.accessPoint("aa:bb:cc:dd:ee:ff")
	// ESSID set but not yet confirmed known (e.g. hidden SSID beacon).
	ap.ESSID = "hiddenattempt"
	ap.ESSIDKnown = false

	_, err := p.FindAccessPoint("hiddenattempt")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAccessPointsSortedByBSSID(t *testing.T) {
	p := NewParser()
	p.accessPoint("cc:cc:cc:cc:cc:cc")
	p.accessPoint("aa:aa:aa:aa:aa:aa")
	p.accessPoint("bb:bb:bb:bb:bb:bb")

	aps := p.AccessPoints()
	require.Len(t, aps, 3)
	assert.Equal(t, "aa:aa:aa:aa:aa:aa", aps[0].BSSID)
	assert.Equal(t, "bb:bb:bb:bb:bb:bb", aps[1].BSSID)
	assert.Equal(t, "cc:cc:cc:cc:cc:cc", aps[2].BSSID)
}

func TestAccessPointCreatedOnDemandIsIdempotent(t *testing.T) {
	p := NewParser()
	a := p.accessPoint("aa:bb:cc:dd:ee:ff")
	b := p.accessPoint("aa:bb:cc:dd:ee:ff")
	assert.Same(t, a, b)
}

func TestIsMulticastDetectsLSBOfFirstOctet(t *testing.T) {
	assert.True(t, isMulticast([]byte{0x01, 0, 0, 0, 0, 0}))
	assert.True(t, isMulticast([]byte{0xFF, 0, 0, 0, 0, 0}))
	assert.False(t, isMulticast([]byte{0xFE, 0, 0, 0, 0, 0}))
	assert.False(t, isMulticast(nil))
}
