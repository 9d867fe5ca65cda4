// Package cowpatty implements the cowpatty/genpmk precomputed-hash file
// format, so a pyrit result set can be exported to or imported from the
// cowpatty ecosystem (§3 supplemented feature — pyrit_cli.py exposes
// export_cowpatty/import_cowpatty but the distilled spec dropped it).
//
// The format here follows cowpatty's well-known genpmk hash-file layout:
// a fixed header (magic, version, SSID) followed by one variable-length
// record per password.
package cowpatty

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jslhs/pyrit/internal/core/domain"
)

var magic = [4]byte{'A', 'P', 'W', 'C'}

const (
	formatVersion = 1
	ssidFieldLen  = 32
	recordType    = 0
)

// Export writes every (password, PMK) pair in results as a cowpatty hash
// file for essid.
func Export(w io.Writer, essid string, results []domain.PasswordPMK) error {
	if err := domain.ValidateESSID(essid); err != nil {
		return err
	}
	if len(essid) > ssidFieldLen {
		return fmt.Errorf("%w: essid too long for cowpatty header", domain.ErrValue)
	}

	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if err := bw.WriteByte(formatVersion); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if err := bw.WriteByte(byte(len(essid))); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	var ssidField [ssidFieldLen]byte
	copy(ssidField[:], essid)
	if _, err := bw.Write(ssidField[:]); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	for _, r := range results {
		if len(r.Password) > 0xFF {
			continue // not representable in a single-byte length field, skip
		}
		recSize := 1 + domain.PMKSize + 1 + len(r.Password)
		sizeField := make([]byte, 2)
		binary.LittleEndian.PutUint16(sizeField, uint16(recSize))
		if _, err := bw.Write(sizeField); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if err := bw.WriteByte(recordType); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if _, err := bw.Write(r.PMK[:]); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if err := bw.WriteByte(byte(len(r.Password))); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if _, err := bw.WriteString(r.Password); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
	}

	return bw.Flush()
}

// Import reads a cowpatty hash file and returns its ESSID and every
// (password, PMK) record.
func Import(r io.Reader) (essid string, results []domain.PasswordPMK, err error) {
	br := bufio.NewReader(r)

	var hdr [4 + 1 + 1]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return "", nil, fmt.Errorf("%w: short cowpatty header: %v", domain.ErrStorage, err)
	}
	if [4]byte(hdr[:4]) != magic {
		return "", nil, fmt.Errorf("%w: bad cowpatty magic", domain.ErrStorage)
	}
	ssidLen := int(hdr[5])
	if ssidLen > ssidFieldLen {
		return "", nil, fmt.Errorf("%w: cowpatty ssid length exceeds header field", domain.ErrStorage)
	}
	var ssidField [ssidFieldLen]byte
	if _, err := io.ReadFull(br, ssidField[:]); err != nil {
		return "", nil, fmt.Errorf("%w: short cowpatty ssid field: %v", domain.ErrStorage, err)
	}
	essid = string(ssidField[:ssidLen])

	for {
		var sizeField [2]byte
		if _, err := io.ReadFull(br, sizeField[:]); err != nil {
			if err == io.EOF {
				break
			}
			return "", nil, fmt.Errorf("%w: truncated cowpatty record header: %v", domain.ErrStorage, err)
		}
		recSize := int(binary.LittleEndian.Uint16(sizeField[:]))
		rec := make([]byte, recSize)
		if _, err := io.ReadFull(br, rec); err != nil {
			return "", nil, fmt.Errorf("%w: truncated cowpatty record: %v", domain.ErrStorage, err)
		}
		if len(rec) < 1+domain.PMKSize+1 {
			return "", nil, fmt.Errorf("%w: cowpatty record too short", domain.ErrStorage)
		}
		var pmk [domain.PMKSize]byte
		copy(pmk[:], rec[1:1+domain.PMKSize])
		pwLen := int(rec[1+domain.PMKSize])
		pwStart := 1 + domain.PMKSize + 1
		if pwStart+pwLen > len(rec) {
			return "", nil, fmt.Errorf("%w: cowpatty password length exceeds record size", domain.ErrStorage)
		}
		password := string(rec[pwStart : pwStart+pwLen])
		results = append(results, domain.PasswordPMK{Password: password, PMK: pmk})
	}

	return essid, results, nil
}
