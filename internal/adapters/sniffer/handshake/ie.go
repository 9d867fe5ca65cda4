package handshake

// iterateIEs walks a management frame's tagged Information Elements,
// calling fn(id, data) for each one. It stops at the first malformed tag
// rather than panicking on truncated capture data (§4.7).
func iterateIEs(data []byte, fn func(id int, val []byte)) {
	offset := 0
	for offset+2 <= len(data) {
		id := int(data[offset])
		length := int(data[offset+1])
		offset += 2
		if offset+length > len(data) {
			break
		}
		fn(id, data[offset:offset+length])
		offset += length
	}
}

// parseSSID extracts the SSID tag (ID 0) from a Beacon/ProbeResp/AssocReq
// payload. hidden is true for a zero-length or all-NUL SSID element.
func parseSSID(payload []byte) (ssid string, hidden bool) {
	var val []byte
	found := false
	iterateIEs(payload, func(id int, data []byte) {
		if !found && id == 0 {
			val = data
			found = true
		}
	})
	if !found {
		return "", false
	}
	for _, b := range val {
		if b != 0x00 {
			return string(val), false
		}
	}
	return "", true
}
