package handshake

import (
	"fmt"
	"io"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/jslhs/pyrit/internal/core/domain"
)

// WriteHandshakePCAP replays the beacon (or probe-response/assoc-request)
// that revealed ap's ESSID, followed by auth's constituent EAPOL frames in
// capture order, to w as a standard pcap capture. Grounded on
// handshake_manager.go's saveSession, which assembles the same
// beacon-then-frames shape so aircrack-ng-family tools can load the result
// directly.
func (p *Parser) WriteHandshakePCAP(w io.Writer, ap *domain.AccessPoint, auth domain.Authentication) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeIEEE80211Radio); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	if ap.ESSIDKnown {
		if raw, ok := p.rawFrames[ap.ESSIDFrameIndex]; ok {
			if err := pw.WritePacket(raw.ci, raw.data); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrStorage, err)
			}
		}
	}

	for _, idx := range auth.FrameIndexes() {
		raw, ok := p.rawFrames[idx]
		if !ok {
			continue
		}
		if err := pw.WritePacket(raw.ci, raw.data); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
	}
	return nil
}
