package handshake

import (
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/jslhs/pyrit/internal/core/domain"
)

// LiveCaptureFilter is the BPF filter applied when sniffing live traffic
// instead of replaying a capture file: EAPOL frames and the management
// frames needed to resolve ESSIDs, nothing else (§4.7 — keeps the
// reconstruction path from drowning in unrelated data traffic).
const LiveCaptureFilter = "(ether proto 0x888e) or (wlan type mgt subtype beacon) or (wlan type mgt subtype probe-resp) or (wlan type mgt subtype assoc-req)"

// ReadPCAPFile replays every packet in a pcap file (radiotap or plain
// 802.11 link type) through Feed. Malformed individual packets are
// skipped; only a read error on the file itself aborts.
func (p *Parser) ReadPCAPFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	linkType := r.LinkType()
	for {
		data, _, err := r.ReadPacketData()
		if err != nil {
			break // EOF or truncated trailer; whatever was read still stands
		}
		packet := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		if packet.Layer(layers.LayerTypeDot11) == nil {
			continue
		}
		p.Feed(packet)
	}
	return nil
}
