package domain

import (
	"bytes"
	"sort"
)

// KeyScheme selects the cryptographic primitives used for PTK derivation
// and MIC verification of an Authentication (§3, §GLOSSARY).
type KeyScheme int

const (
	// SchemeUnknown means the frame never declared a scheme bit and no
	// fallback default applied.
	SchemeUnknown KeyScheme = iota
	// SchemeHMACMD5RC4 is the legacy WPA/TKIP scheme.
	SchemeHMACMD5RC4
	// SchemeHMACSHA1AES is the RSN/WPA2/CCMP scheme.
	SchemeHMACSHA1AES
)

func (s KeyScheme) String() string {
	switch s {
	case SchemeHMACMD5RC4:
		return "HMAC_MD5_RC4"
	case SchemeHMACSHA1AES:
		return "HMAC_SHA1_AES"
	default:
		return "unknown"
	}
}

// AccessPoint is identified by BSSID and holds everything the parser
// learned about one AP: its ESSID (once discovered), the frame that
// revealed it, and the Stations it has been observed talking to (§3).
type AccessPoint struct {
	BSSID      string
	ESSID      string
	ESSIDKnown bool
	// ESSIDFrameIndex is the position (in the parser's frame stream) of the
	// beacon/probe-response/association-request that revealed the ESSID.
	ESSIDFrameIndex int

	// stations maps a BSSID-scoped STA-MAC to its Station. Modeled as a
	// plain map rather than a back-referencing pointer graph (§9 design
	// notes: no cyclic references) — Station.APBSSID is the stable key
	// back into the parser's AccessPoint table, not a pointer.
	stations map[string]*Station
}

// NewAccessPoint creates an AccessPoint with an empty Station table.
func NewAccessPoint(bssid string) *AccessPoint {
	return &AccessPoint{BSSID: bssid, stations: make(map[string]*Station)}
}

// Station returns the Station for staMAC, creating it if absent.
func (ap *AccessPoint) Station(staMAC string) *Station {
	sta, ok := ap.stations[staMAC]
	if !ok {
		sta = NewStation(staMAC, ap.BSSID)
		ap.stations[staMAC] = sta
	}
	return sta
}

// LookupStation returns the Station for staMAC without creating it.
func (ap *AccessPoint) LookupStation(staMAC string) (*Station, bool) {
	sta, ok := ap.stations[staMAC]
	return sta, ok
}

// Stations returns the BSSID-scoped stations, sorted by MAC for
// deterministic iteration.
func (ap *AccessPoint) Stations() []*Station {
	out := make([]*Station, 0, len(ap.stations))
	for _, sta := range ap.stations {
		out = append(out, sta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MAC < out[j].MAC })
	return out
}

// replayGroup holds the Frame1/Frame2/Frame3 candidates sharing one
// ReplayCounter, keyed the way the original parser de-dups them: Frame1/
// Frame3 by ANonce, Frame2 by (scheme, SNonce, zeroed-MIC body, MIC).
type replayGroup struct {
	frame1 map[string]Frame1  // keyed by ANonce
	frame2 map[frame2Key]Frame2
	frame3 map[string]Frame3  // keyed by ANonce
}

func newReplayGroup() *replayGroup {
	return &replayGroup{
		frame1: make(map[string]Frame1),
		frame2: make(map[frame2Key]Frame2),
		frame3: make(map[string]Frame3),
	}
}

type frame2Key struct {
	scheme    KeyScheme
	snonce    string
	micBody   string
	mic       string
}

// Frame1 is the EAPOL message that provides the ANonce.
type Frame1 struct {
	Index  int
	ANonce [32]byte
}

// Frame2 is the EAPOL message that provides the SNonce, the transmitted
// MIC, and the MIC-zeroed EAPOL body used to re-verify it.
type Frame2 struct {
	Index   int
	Scheme  KeyScheme
	SNonce  [32]byte
	MIC     [16]byte
	MICBody []byte
}

// Frame3 confirms the ANonce used in Frame1.
type Frame3 struct {
	Index  int
	ANonce [32]byte
}

// Station is identified by STA-MAC and owned by one AccessPoint (by BSSID,
// not by pointer — §9). It accumulates EAPOL key frames indexed by
// ReplayCounter.
type Station struct {
	MAC      string
	APBSSID  string
	groups   map[uint64]*replayGroup
}

// NewStation creates a Station bound to its owning AccessPoint's BSSID.
func NewStation(mac, apBSSID string) *Station {
	return &Station{MAC: mac, APBSSID: apBSSID, groups: make(map[uint64]*replayGroup)}
}

func (s *Station) group(replayCounter uint64) *replayGroup {
	g, ok := s.groups[replayCounter]
	if !ok {
		g = newReplayGroup()
		s.groups[replayCounter] = g
	}
	return g
}

// AddFrame1 records a Frame 1 at the given ReplayCounter, de-duping by
// ANonce within the group.
func (s *Station) AddFrame1(replayCounter uint64, f Frame1) {
	g := s.group(replayCounter)
	if _, exists := g.frame1[string(f.ANonce[:])]; !exists {
		g.frame1[string(f.ANonce[:])] = f
	}
}

// AddFrame2 records a Frame 2 at the given ReplayCounter, de-duping by
// (scheme, SNonce, MIC body, MIC) within the group.
func (s *Station) AddFrame2(replayCounter uint64, f Frame2) {
	g := s.group(replayCounter)
	key := frame2Key{scheme: f.Scheme, snonce: string(f.SNonce[:]), micBody: string(f.MICBody), mic: string(f.MIC[:])}
	if _, exists := g.frame2[key]; !exists {
		g.frame2[key] = f
	}
}

// AddFrame3 records a Frame 3. It groups with the Frame1/Frame2 whose
// ReplayCounter equals frame3.ReplayCounter-1 (§3).
func (s *Station) AddFrame3(replayCounter uint64, f Frame3) {
	g := s.group(replayCounter - 1)
	if _, exists := g.frame3[string(f.ANonce[:])]; !exists {
		g.frame3[string(f.ANonce[:])] = f
	}
}

// Authentications reconstructs every Authentication this Station's
// captured frames support, ordered (quality, spread) ascending — best
// first (§3, §8).
func (s *Station) Authentications(apMAC [6]byte, staMAC [6]byte) []Authentication {
	var auths []Authentication
	for _, g := range s.groups {
		auths = append(auths, buildAuthentications(g, apMAC, staMAC)...)
	}
	sort.Slice(auths, func(i, j int) bool {
		if auths[i].Quality != auths[j].Quality {
			return auths[i].Quality < auths[j].Quality
		}
		return auths[i].Spread < auths[j].Spread
	})
	return auths
}

func buildAuthentications(g *replayGroup, apMAC, staMAC [6]byte) []Authentication {
	var auths []Authentication
	for key, f2 := range g.frame2 {
		for anonce, f3 := range g.frame3 {
			if f1, ok := g.frame1[anonce]; ok {
				spread := maxInt(maxInt(absInt(f3.Index-f2.Index), absInt(f1.Index-f2.Index)), absInt(f3.Index-f1.Index))
				auth := newAuthentication(key, f2, [32]byte([]byte(anonce)), apMAC, staMAC, 0, spread)
				auth.Frame1Index, auth.Frame2Index, auth.Frame3Index = f1.Index, f2.Index, f3.Index
				auths = append(auths, auth)
			} else {
				spread := absInt(f3.Index - f2.Index)
				auth := newAuthentication(key, f2, [32]byte([]byte(anonce)), apMAC, staMAC, 1, spread)
				auth.Frame2Index, auth.Frame3Index = f2.Index, f3.Index
				auths = append(auths, auth)
			}
		}
		for anonce, f1 := range g.frame1 {
			if _, hasFrame3 := g.frame3[anonce]; hasFrame3 {
				continue
			}
			spread := absInt(f1.Index - f2.Index)
			auth := newAuthentication(key, f2, f1.ANonce, apMAC, staMAC, 2, spread)
			auth.Frame1Index, auth.Frame2Index = f1.Index, f2.Index
			auths = append(auths, auth)
		}
	}
	return auths
}

func newAuthentication(key frame2Key, f2 Frame2, anonce [32]byte, apMAC, staMAC [6]byte, quality, spread int) Authentication {
	return Authentication{
		Scheme:  f2.Scheme,
		SNonce:  f2.SNonce,
		ANonce:  anonce,
		MIC:     f2.MIC,
		MICBody: f2.MICBody,
		APMAC:   apMAC,
		STAMAC:  staMAC,
		Quality: quality,
		Spread:  spread,
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Authentication is one reconstructed 4-way-handshake attempt (§3).
// Quality: 0 (best, F1+F2+F3), 1 (F2+F3), 2 (F1+F2). Spread is the max
// absolute index distance between the participating frames.
type Authentication struct {
	Scheme  KeyScheme
	SNonce  [32]byte
	ANonce  [32]byte
	MIC     [16]byte
	MICBody []byte
	APMAC   [6]byte
	STAMAC  [6]byte
	Quality int
	Spread  int

	// Frame{1,2,3}Index are the parser's capture-order positions of the
	// constituent EAPOL frames, zero if that frame wasn't part of this
	// Authentication (§3 Quality). Used to splice the original captured
	// frames back into a pcap for external tools.
	Frame1Index int
	Frame2Index int
	Frame3Index int
}

// FrameIndexes returns the non-zero constituent frame indexes, sorted in
// capture order.
func (a Authentication) FrameIndexes() []int {
	var idxs []int
	for _, idx := range []int{a.Frame1Index, a.Frame2Index, a.Frame3Index} {
		if idx != 0 {
			idxs = append(idxs, idx)
		}
	}
	sort.Ints(idxs)
	return idxs
}

// pkeLiteral is the fixed prefix of the Pairwise Key Expansion input (§3).
var pkeLiteral = []byte("Pairwise key expansion\x00")

// PKE computes the Pairwise Key Expansion input for this Authentication:
// the literal label, the two MACs in byte-wise sorted order, the two
// nonces in byte-wise sorted order, and a trailing zero byte (§3).
func (a Authentication) PKE() []byte {
	macA, macB := a.APMAC[:], a.STAMAC[:]
	if bytes.Compare(macA, macB) > 0 {
		macA, macB = macB, macA
	}
	nonceA, nonceB := a.SNonce[:], a.ANonce[:]
	if bytes.Compare(nonceA, nonceB) > 0 {
		nonceA, nonceB = nonceB, nonceA
	}
	buf := make([]byte, 0, len(pkeLiteral)+6+6+32+32+1)
	buf = append(buf, pkeLiteral...)
	buf = append(buf, macA...)
	buf = append(buf, macB...)
	buf = append(buf, nonceA...)
	buf = append(buf, nonceB...)
	buf = append(buf, 0)
	return buf
}
