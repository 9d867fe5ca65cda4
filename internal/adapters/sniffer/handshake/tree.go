package handshake

import (
	"net"
	"sort"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/jslhs/pyrit/internal/core/domain"
	"github.com/jslhs/pyrit/internal/telemetry"
)

// Parser builds a tree of AccessPoint/Station/handshake state by replaying
// 802.11 frames one at a time (§4.7). It never crashes on malformed or
// out-of-order input — frames it can't classify are ignored.
//
// Grounded on pckttools.py's parse_packet: skip Control-type frames, learn
// ESSIDs from Beacon/ProbeResp/AssocReq, and resolve BSSID/station MAC for
// Data frames from the ToDS/FromDS flag pair the same way
// handshake_manager.go's handleEAPOL does.
type Parser struct {
	aps        map[string]*domain.AccessPoint
	frameIndex int

	// rawFrames retains every captured 802.11 frame's bytes and capture
	// metadata by frame index, so a reconstructed Authentication's
	// constituent frames (and the beacon that revealed its ESSID) can be
	// replayed back out to a pcap file for external tools (§6).
	rawFrames map[int]rawFrame
}

type rawFrame struct {
	data []byte
	ci   gopacket.CaptureInfo
}

// NewParser creates an empty Parser.
func NewParser() *Parser {
	return &Parser{aps: make(map[string]*domain.AccessPoint), rawFrames: make(map[int]rawFrame)}
}

func (p *Parser) accessPoint(bssid string) *domain.AccessPoint {
	ap, ok := p.aps[bssid]
	if !ok {
		ap = domain.NewAccessPoint(bssid)
		p.aps[bssid] = ap
	}
	return ap
}

// AccessPoints returns every discovered AccessPoint, sorted by BSSID.
func (p *Parser) AccessPoints() []*domain.AccessPoint {
	out := make([]*domain.AccessPoint, 0, len(p.aps))
	for _, ap := range p.aps {
		out = append(out, ap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BSSID < out[j].BSSID })
	return out
}

// FindAccessPoint resolves an operator-supplied BSSID or ESSID to a single
// AccessPoint (§4.7, §9). An exact BSSID match wins outright; otherwise an
// ESSID match is accepted only if exactly one AccessPoint advertises it.
func (p *Parser) FindAccessPoint(selector string) (*domain.AccessPoint, error) {
	if ap, ok := p.aps[selector]; ok {
		return ap, nil
	}
	var matches []*domain.AccessPoint
	for _, ap := range p.aps {
		if ap.ESSIDKnown && ap.ESSID == selector {
			matches = append(matches, ap)
		}
	}
	switch len(matches) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, domain.ErrAmbiguousAP
	}
}

// Feed processes one captured packet, advancing the parser's frame index
// regardless of whether the packet turns out to be relevant (the index is
// used for Quality/Spread scoring, so it must track capture order, not
// just the subset of frames that matched).
func (p *Parser) Feed(packet gopacket.Packet) {
	p.frameIndex++
	telemetry.PacketsParsed.Inc()

	dot11Layer := packet.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return
	}
	dot11, ok := dot11Layer.(*layers.Dot11)
	if !ok || dot11.Type.MainType() == layers.Dot11MainTypeCtrl {
		return
	}

	p.rawFrames[p.frameIndex] = rawFrame{data: packet.Data(), ci: packet.Metadata().CaptureInfo}

	switch dot11.Type {
	case layers.Dot11TypeMgmtBeacon, layers.Dot11TypeMgmtProbeResp, layers.Dot11TypeMgmtAssociationReq:
		p.handleManagement(packet, dot11)
		return
	}

	if packet.Layer(layers.LayerTypeEAPOL) != nil {
		p.handleEAPOL(packet, dot11)
	}
}

func (p *Parser) handleManagement(packet gopacket.Packet, dot11 *layers.Dot11) {
	bssid := dot11.Address3.String()
	var payload []byte
	for _, lt := range []gopacket.LayerType{
		layers.LayerTypeDot11MgmtBeacon,
		layers.LayerTypeDot11MgmtProbeResp,
		layers.LayerTypeDot11MgmtAssociationReq,
	} {
		if l := packet.Layer(lt); l != nil {
			payload = l.LayerPayload()
			break
		}
	}
	if payload == nil {
		return
	}
	ssid, hidden := parseSSID(payload)
	if hidden || ssid == "" {
		return
	}
	ap := p.accessPoint(bssid)
	if !ap.ESSIDKnown {
		ap.ESSID = ssid
		ap.ESSIDKnown = true
		ap.ESSIDFrameIndex = p.frameIndex
	}
}

func isMulticast(hw net.HardwareAddr) bool {
	return len(hw) > 0 && hw[0]&0x01 != 0
}

func (p *Parser) handleEAPOL(packet gopacket.Packet, dot11 *layers.Dot11) {
	toDS := dot11.Flags.ToDS()
	fromDS := dot11.Flags.FromDS()

	var bssid, staMAC string
	switch {
	case !toDS && !fromDS:
		return // not a unicast data frame between an AP and a station
	case !toDS && fromDS:
		bssid = dot11.Address2.String()
		staMAC = dot11.Address1.String()
		if isMulticast(dot11.Address1) {
			return
		}
	case toDS && !fromDS:
		bssid = dot11.Address1.String()
		staMAC = dot11.Address2.String()
		if isMulticast(dot11.Address2) {
			return
		}
	default:
		return // WDS, not a client handshake
	}

	f, err := parseEAPOLKey(packet)
	if err != nil {
		return
	}

	ap := p.accessPoint(bssid)
	sta := ap.Station(staMAC)

	switch f.messageNumber() {
	case 1:
		sta.AddFrame1(f.replayCounter, domain.Frame1{Index: p.frameIndex, ANonce: f.nonce})
	case 2:
		sta.AddFrame2(f.replayCounter, domain.Frame2{
			Index: p.frameIndex, Scheme: f.scheme(), SNonce: f.nonce, MIC: f.mic, MICBody: f.micBody,
		})
	case 3:
		sta.AddFrame3(f.replayCounter, domain.Frame3{Index: p.frameIndex, ANonce: f.nonce})
	}
}
