// Package storage implements the filesystem-backed password and ESSID
// stores (§4.2-§4.4), grounded on storage.py's BasePYR_Buffer family: each
// on-disk blob is a small fixed header plus a zlib-compressed, digest-
// checked body.
package storage

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/jslhs/pyrit/internal/core/domain"
)

var paw2Magic = [4]byte{'P', 'A', 'W', '2'}

// encodePAW2 packs a password bucket into the PAW2 container (§4.2): magic,
// MD5 of the compressed body, then the compressed, newline-joined password
// list — no length field; the body runs to the end of the blob, exactly as
// storage.py's PAW2_Buffer.pack produces `'PAW2' + md.digest() + b`. The
// returned key is the hex MD5 digest of the compressed body, matching the
// source's addressing scheme.
func encodePAW2(passwords []string) (key string, blob []byte, err error) {
	joined := strings.Join(passwords, "\n")

	var compBuf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compBuf, zlib.BestSpeed)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if _, err := zw.Write([]byte(joined)); err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if err := zw.Close(); err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	compressed := compBuf.Bytes()

	digest := md5.Sum(compressed)

	buf := make([]byte, 0, 4+16+len(compressed))
	buf = append(buf, paw2Magic[:]...)
	buf = append(buf, digest[:]...)
	buf = append(buf, compressed...)

	return hex.EncodeToString(digest[:]), buf, nil
}

// decodePAW2 reverses encodePAW2, verifying the digest before returning the
// password list (§4.2: digest mismatch is a DigestError, not silently
// ignored). The digest starts at byte 4 and the body is everything after
// byte 20, matching storage.py's PAW2_Buffer.unpack slicing
// `buf[4+md.digest_size:]`.
func decodePAW2(blob []byte) ([]string, error) {
	if len(blob) < 20 {
		return nil, fmt.Errorf("%w: PAW2 blob too short (%d bytes)", domain.ErrStorage, len(blob))
	}
	if !bytes.Equal(blob[:4], paw2Magic[:]) {
		return nil, fmt.Errorf("%w: bad PAW2 magic", domain.ErrStorage)
	}
	wantDigest := blob[4:20]
	compressed := blob[20:]

	gotDigest := md5.Sum(compressed)
	if !bytes.Equal(gotDigest[:], wantDigest) {
		return nil, fmt.Errorf("%w: PAW2 digest mismatch", domain.ErrDigest)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer zr.Close()
	inflated, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	if len(inflated) == 0 {
		return nil, nil
	}
	return strings.Split(string(inflated), "\n"), nil
}
