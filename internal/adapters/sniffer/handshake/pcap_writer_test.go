package handshake

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jslhs/pyrit/internal/core/domain"
)

func fixedRawFrame(data []byte) rawFrame {
	return rawFrame{
		data: data,
		ci: gopacket.CaptureInfo{
			Timestamp:     time.Unix(0, 0),
			CaptureLength: len(data),
			Length:        len(data),
		},
	}
}

func TestWriteHandshakePCAPIncludesBeaconAndConstituentFrames(t *testing.T) {
	p := NewParser()
	ap := p.accessPoint("aa:bb:cc:dd:ee:ff")
	ap.ESSID = "testnet"
	ap.ESSIDKnown = true
	ap.ESSIDFrameIndex = 1

	p.rawFrames[1] = fixedRawFrame([]byte("beacon-frame"))
	p.rawFrames[5] = fixedRawFrame([]byte("frame1-bytes"))
	p.rawFrames[6] = fixedRawFrame([]byte("frame2-bytes"))
	p.rawFrames[7] = fixedRawFrame([]byte("frame3-bytes"))

	auth := domain.Authentication{Frame1Index: 5, Frame2Index: 6, Frame3Index: 7}

	var buf bytes.Buffer
	require.NoError(t, p.WriteHandshakePCAP(&buf, ap, auth))

	out := buf.Bytes()
	assert.Contains(t, string(out), "beacon-frame")
	assert.Contains(t, string(out), "frame1-bytes")
	assert.Contains(t, string(out), "frame2-bytes")
	assert.Contains(t, string(out), "frame3-bytes")
}

func TestWriteHandshakePCAPSkipsUnknownESSIDBeacon(t *testing.T) {
	p := NewParser()
	ap := p.accessPoint("aa:bb:cc:dd:ee:ff")
	// ESSIDKnown left false: no beacon should be written even if present.
	p.rawFrames[1] = fixedRawFrame([]byte("beacon-frame"))
	p.rawFrames[5] = fixedRawFrame([]byte("frame2-bytes"))

	auth := domain.Authentication{Frame2Index: 5}

	var buf bytes.Buffer
	require.NoError(t, p.WriteHandshakePCAP(&buf, ap, auth))

	out := buf.Bytes()
	assert.NotContains(t, string(out), "beacon-frame")
	assert.Contains(t, string(out), "frame2-bytes")
}

func TestWriteHandshakePCAPSkipsMissingFrames(t *testing.T) {
	p := NewParser()
	ap := p.accessPoint("aa:bb:cc:dd:ee:ff")

	auth := domain.Authentication{Frame1Index: 99, Frame2Index: 100, Frame3Index: 101}

	var buf bytes.Buffer
	require.NoError(t, p.WriteHandshakePCAP(&buf, ap, auth))
	assert.NotEmpty(t, buf.Bytes()) // file header still written
}
