// Package handshake reconstructs WPA/WPA2 4-way handshakes from captured
// 802.11 traffic (§4.7). Grounded on the source's eapol_parser.go for the
// EAPOL Key wire format and on handshake_manager.go for DS-flag-based
// address resolution, adapted to build domain.AccessPoint/Station trees
// instead of per-pair capture sessions.
package handshake

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/jslhs/pyrit/internal/core/domain"
)

// KeyInformation bit masks (IEEE 802.11i §8.5.2).
const (
	keyInfoDescriptorVersionMask = 0x0007
	keyInfoKeyType               = 1 << 3
	keyInfoInstall               = 1 << 6
	keyInfoKeyAck                = 1 << 7
	keyInfoKeyMIC                = 1 << 8
	keyInfoSecure                = 1 << 9
)

// eapolKeyFrame is the parsed form of an EAPOL Key frame's fixed fields.
type eapolKeyFrame struct {
	keyInfo       uint16
	replayCounter uint64
	nonce         [32]byte
	keyDataLen    uint16

	micBody []byte // the full EAPOL frame with the MIC field zeroed
	mic     [16]byte

	isPairwise bool
	hasMIC     bool
	hasAck     bool
	secure     bool
	version    uint8
}

var errNotEAPOLKey = errors.New("not an EAPOL key frame")

// parseEAPOLKey extracts the fixed fields of an EAPOL Key frame, including
// the MIC-zeroed frame body later re-hashed during MIC verification (§4.8).
func parseEAPOLKey(packet gopacket.Packet) (*eapolKeyFrame, error) {
	layer := packet.Layer(layers.LayerTypeEAPOL)
	if layer == nil {
		return nil, errNotEAPOLKey
	}
	eapol, ok := layer.(*layers.EAPOL)
	if !ok || eapol.Type != layers.EAPOLTypeKey {
		return nil, errNotEAPOLKey
	}

	payload := eapol.LayerPayload()
	const minLen = 1 + 2 + 2 + 8 + 32 + 16 + 8 + 8 + 16 + 2
	if len(payload) < minLen {
		return nil, fmt.Errorf("%w: payload too short (%d bytes)", errNotEAPOLKey, len(payload))
	}

	f := &eapolKeyFrame{}
	f.keyInfo = binary.BigEndian.Uint16(payload[1:3])
	f.replayCounter = binary.BigEndian.Uint64(payload[5:13])
	copy(f.nonce[:], payload[13:45])
	f.keyDataLen = binary.BigEndian.Uint16(payload[93:95])
	copy(f.mic[:], payload[77:93])

	f.hasMIC = f.keyInfo&keyInfoKeyMIC != 0
	f.hasAck = f.keyInfo&keyInfoKeyAck != 0
	f.isPairwise = f.keyInfo&keyInfoKeyType != 0
	f.secure = f.keyInfo&keyInfoSecure != 0
	f.version = uint8(f.keyInfo & keyInfoDescriptorVersionMask)

	header := eapol.LayerContents()
	body := append([]byte(nil), header...)
	body = append(body, payload...)
	for i := range f.mic {
		body[len(header)+77+i] = 0
	}
	f.micBody = body

	return f, nil
}

// messageNumber infers which of M1-M4 this frame is, following the same
// ack/mic/secure/keydata heuristics as the source's DetermineMessageNumber
// (§4.7). Returns 0 for group-key or unrecognized frames.
func (f *eapolKeyFrame) messageNumber() int {
	if !f.isPairwise {
		return 0
	}
	if !f.hasMIC {
		if f.hasAck {
			return 1
		}
		return 0
	}
	if f.hasAck {
		return 3
	}
	if !f.secure {
		if f.keyDataLen == 0 {
			return 4
		}
		return 2
	}
	if f.keyDataLen > 0 {
		return 2
	}
	return 4
}

func (f *eapolKeyFrame) scheme() domain.KeyScheme {
	switch f.version {
	case 1:
		return domain.SchemeHMACMD5RC4
	case 2, 3:
		return domain.SchemeHMACSHA1AES
	default:
		return domain.SchemeUnknown
	}
}
