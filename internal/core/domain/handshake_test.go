package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationAuthentications_BestQualityIsFullTriple(t *testing.T) {
	sta := NewStation("aa:bb:cc:dd:ee:ff", "11:22:33:44:55:66")

	var anonce, snonce [32]byte
	anonce[0] = 0xAA
	snonce[0] = 0xBB

	sta.AddFrame1(2, Frame1{Index: 10, ANonce: anonce})
	sta.AddFrame2(2, Frame2{Index: 11, Scheme: SchemeHMACSHA1AES, SNonce: snonce, MIC: [16]byte{1}, MICBody: []byte("body")})
	sta.AddFrame3(3, Frame3{Index: 12, ANonce: anonce})

	var apMAC, staMAC [6]byte
	auths := sta.Authentications(apMAC, staMAC)
	require.Len(t, auths, 1)
	assert.Equal(t, 0, auths[0].Quality)
	assert.Equal(t, 2, auths[0].Spread) // max(|12-11|, |10-11|, |12-10|)
	assert.Equal(t, anonce, auths[0].ANonce)
	assert.Equal(t, snonce, auths[0].SNonce)
	assert.Equal(t, []int{10, 11, 12}, auths[0].FrameIndexes())
}

func TestStationAuthentications_Frame2Frame3OnlyIsLowerQuality(t *testing.T) {
	sta := NewStation("aa:bb:cc:dd:ee:ff", "11:22:33:44:55:66")

	var anonce, snonce [32]byte
	anonce[0] = 0xCC

	sta.AddFrame2(5, Frame2{Index: 20, Scheme: SchemeHMACSHA1AES, SNonce: snonce, MIC: [16]byte{2}, MICBody: []byte("body2")})
	sta.AddFrame3(6, Frame3{Index: 21, ANonce: anonce})

	var apMAC, staMAC [6]byte
	auths := sta.Authentications(apMAC, staMAC)
	require.Len(t, auths, 1)
	assert.Equal(t, 1, auths[0].Quality)
}

func TestStationAuthentications_DeduplicatesRepeatedFrames(t *testing.T) {
	sta := NewStation("aa:bb:cc:dd:ee:ff", "11:22:33:44:55:66")
	var anonce [32]byte
	anonce[0] = 1

	// The same Frame1 delivered twice (a retransmission) must not produce
	// two distinct Frame1 entries in its replay-counter group.
	sta.AddFrame1(2, Frame1{Index: 1, ANonce: anonce})
	sta.AddFrame1(2, Frame1{Index: 1, ANonce: anonce})

	assert.Len(t, sta.groups[2].frame1, 1)
}

func TestAuthenticationPKE_OrdersMACsAndNoncesBytewise(t *testing.T) {
	a := Authentication{
		APMAC:  [6]byte{0xFF, 0, 0, 0, 0, 0},
		STAMAC: [6]byte{0x01, 0, 0, 0, 0, 0},
		ANonce: [32]byte{0xFF},
		SNonce: [32]byte{0x01},
	}
	pke := a.PKE()

	// Expect literal, then the lexicographically smaller MAC first, then
	// the smaller nonce first, then a trailing zero byte.
	require.Len(t, pke, len(pkeLiteral)+6+6+32+32+1)
	offset := len(pkeLiteral)
	assert.Equal(t, byte(0x01), pke[offset]) // STAMAC sorts first
	assert.Equal(t, byte(0xFF), pke[offset+6])
	assert.Equal(t, byte(0x01), pke[offset+12]) // SNonce sorts first
	assert.Equal(t, byte(0), pke[len(pke)-1])
}

func TestAuthenticationPKE_Deterministic(t *testing.T) {
	a := Authentication{
		APMAC:  [6]byte{1, 2, 3, 4, 5, 6},
		STAMAC: [6]byte{6, 5, 4, 3, 2, 1},
		ANonce: [32]byte{9},
		SNonce: [32]byte{8},
	}
	assert.Equal(t, a.PKE(), a.PKE())
}

func TestAuthenticationFrameIndexesOmitsAbsentFramesAndSorts(t *testing.T) {
	a := Authentication{Frame1Index: 0, Frame2Index: 30, Frame3Index: 15}
	assert.Equal(t, []int{15, 30}, a.FrameIndexes())
}

func TestKeySchemeString(t *testing.T) {
	assert.Equal(t, "HMAC_MD5_RC4", SchemeHMACMD5RC4.String())
	assert.Equal(t, "HMAC_SHA1_AES", SchemeHMACSHA1AES.String())
	assert.Equal(t, "unknown", SchemeUnknown.String())
}

func TestAccessPointStationCreatesOnDemand(t *testing.T) {
	ap := NewAccessPoint("aa:bb:cc:dd:ee:ff")
	_, ok := ap.LookupStation("11:22:33:44:55:66")
	assert.False(t, ok)

	sta := ap.Station("11:22:33:44:55:66")
	require.NotNil(t, sta)
	again, ok := ap.LookupStation("11:22:33:44:55:66")
	assert.True(t, ok)
	assert.Same(t, sta, again)
}
