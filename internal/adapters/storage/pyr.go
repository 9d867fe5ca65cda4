package storage

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/jslhs/pyrit/internal/core/domain"
)

var (
	pyr2Magic = [4]byte{'P', 'Y', 'R', '2'}
	pyrtMagic = [4]byte{'P', 'Y', 'R', 'T'}
)

// encodePYR2 packs a ResultSet into the PYR2 container (§4.3): magic,
// essid length+bytes, little-endian count, MD5 digest, the PMKs
// concatenated in order, then the zlib-compressed newline-joined
// passwords. The digest covers essid + PMKs + the *compressed* password
// bytes, matching the current-format layout in storage.py.
func encodePYR2(rs domain.ResultSet) ([]byte, error) {
	if len(rs.ESSID) > 0xFFFF {
		return nil, fmt.Errorf("%w: essid too long for PYR2 header", domain.ErrValue)
	}

	pmks := make([]byte, 0, len(rs.Results)*domain.PMKSize)
	pws := make([]string, 0, len(rs.Results))
	for _, r := range rs.Results {
		pmks = append(pmks, r.PMK[:]...)
		pws = append(pws, r.Password)
	}

	var compBuf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compBuf, zlib.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if _, err := zw.Write([]byte(strings.Join(pws, "\n"))); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	compressed := compBuf.Bytes()

	h := md5.New()
	h.Write([]byte(rs.ESSID))
	h.Write(pmks)
	h.Write(compressed)
	digest := h.Sum(nil)

	buf := make([]byte, 0, 4+2+len(rs.ESSID)+4+16+len(pmks)+len(compressed))
	buf = append(buf, pyr2Magic[:]...)
	essidLen := make([]byte, 2)
	binary.LittleEndian.PutUint16(essidLen, uint16(len(rs.ESSID)))
	buf = append(buf, essidLen...)
	buf = append(buf, rs.ESSID...)
	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(rs.Results)))
	buf = append(buf, count...)
	buf = append(buf, digest...)
	buf = append(buf, pmks...)
	buf = append(buf, compressed...)
	return buf, nil
}

// decodeResultSet decodes either the current PYR2 format or the legacy
// PYRT format (NUL-delimited passwords, digest taken over the *decompressed*
// password bytes — kept for reading old blobs, per storage.py's
// BasePYR_Buffer dispatch on magic).
func decodeResultSet(essid string, blob []byte) (domain.ResultSet, error) {
	if len(blob) < 6 {
		return domain.ResultSet{}, fmt.Errorf("%w: PYR blob too short", domain.ErrStorage)
	}
	var magic [4]byte
	copy(magic[:], blob[:4])
	if magic != pyr2Magic && magic != pyrtMagic {
		return domain.ResultSet{}, fmt.Errorf("%w: unrecognized PYR magic", domain.ErrStorage)
	}

	essidLen := int(binary.LittleEndian.Uint16(blob[4:6]))
	pos := 6
	if pos+essidLen > len(blob) {
		return domain.ResultSet{}, fmt.Errorf("%w: PYR essid length exceeds blob size", domain.ErrStorage)
	}
	blobEssid := string(blob[pos : pos+essidLen])
	pos += essidLen
	if blobEssid != essid {
		return domain.ResultSet{}, fmt.Errorf("%w: PYR blob essid %q != requested %q", domain.ErrStorage, blobEssid, essid)
	}

	if pos+4 > len(blob) {
		return domain.ResultSet{}, fmt.Errorf("%w: PYR blob truncated before count", domain.ErrStorage)
	}
	count := int(binary.LittleEndian.Uint32(blob[pos : pos+4]))
	pos += 4

	if pos+16 > len(blob) {
		return domain.ResultSet{}, fmt.Errorf("%w: PYR blob truncated before digest", domain.ErrStorage)
	}
	wantDigest := blob[pos : pos+16]
	pos += 16

	pmkBytes := count * domain.PMKSize
	if pos+pmkBytes > len(blob) {
		return domain.ResultSet{}, fmt.Errorf("%w: PYR blob truncated before PMKs", domain.ErrStorage)
	}
	pmks := blob[pos : pos+pmkBytes]
	pos += pmkBytes
	compressed := blob[pos:]

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	inflated, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	h := md5.New()
	h.Write([]byte(essid))
	h.Write(pmks)
	if magic == pyr2Magic {
		h.Write(compressed)
	} else {
		h.Write(inflated)
	}
	if !bytes.Equal(h.Sum(nil), wantDigest) {
		return domain.ResultSet{}, fmt.Errorf("%w: PYR digest mismatch", domain.ErrDigest)
	}

	var pws []string
	if count > 0 {
		delim := "\n"
		if magic == pyrtMagic {
			delim = "\x00"
		}
		pws = strings.Split(string(inflated), delim)
	}
	if len(pws) != count {
		return domain.ResultSet{}, fmt.Errorf("%w: PYR password count %d != header count %d", domain.ErrStorage, len(pws), count)
	}

	results := make([]domain.PasswordPMK, count)
	for i := 0; i < count; i++ {
		var pmk [domain.PMKSize]byte
		copy(pmk[:], pmks[i*domain.PMKSize:(i+1)*domain.PMKSize])
		results[i] = domain.PasswordPMK{Password: pws[i], PMK: pmk}
	}

	return domain.ResultSet{ESSID: essid, Results: results}, nil
}
