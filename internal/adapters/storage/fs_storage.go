package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/jslhs/pyrit/internal/core/domain"
	"github.com/jslhs/pyrit/internal/core/ports"
)

// FSStorage combines a filesystem PasswordStore and ESSIDStore into one
// unit (§4.4), rooted at a single blobspace directory. Grounded on
// storage.py's Storage/FSStorage split.
type FSStorage struct {
	passwords *FSPasswordStore
	essids    *FSEssidStore
}

// Open resolves a "file://" storage URL into an FSStorage, creating the
// blobspace directory if needed. workunitSize and uniqueCheck configure the
// password store's buffering policy (§4.2, §9).
func Open(storageURL string, workunitSize int, uniqueCheck bool) (*FSStorage, error) {
	u, err := url.Parse(storageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid storage URL %q: %v", domain.ErrValue, storageURL, err)
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return nil, fmt.Errorf("%w: unsupported storage scheme %q", domain.ErrValue, u.Scheme)
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	if path == "" {
		path = storageURL
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return &FSStorage{
		passwords: NewFSPasswordStore(path, workunitSize, uniqueCheck),
		essids:    NewFSEssidStore(path),
	}, nil
}

// Passwords returns the password store.
func (s *FSStorage) Passwords() ports.PasswordStore { return s.passwords }

// ESSIDs returns the ESSID store.
func (s *FSStorage) ESSIDs() ports.ESSIDStore { return s.essids }

// Delete removes key from every ESSID that references it, then from the
// password store (§4.4).
func (s *FSStorage) Delete(key string) error {
	essids, err := s.essids.IterESSIDs()
	if err != nil {
		return err
	}
	for _, essid := range essids {
		if s.essids.ContainsKey(essid, key) {
			if err := s.essids.DeleteKey(essid, key); err != nil {
				return err
			}
		}
	}
	if err := s.passwords.Delete(key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// GetStats returns the count of passwords in flushed (on-disk) buckets,
// not counting the password store's in-memory buffer, and, per
// ESSID, how many passwords have been solved (§4.4).
func (s *FSStorage) GetStats() (ports.Stats, error) {
	pwKeys, err := s.passwords.IterKeys()
	if err != nil {
		return ports.Stats{}, err
	}
	total := 0
	for _, key := range pwKeys {
		n, err := s.passwords.Size(key)
		if err != nil {
			return ports.Stats{}, err
		}
		total += n
	}

	essids, err := s.essids.IterESSIDs()
	if err != nil {
		return ports.Stats{}, err
	}
	solved := make(map[string]int, len(essids))
	for _, essid := range essids {
		keys, err := s.essids.IterKeys(essid)
		if err != nil {
			return ports.Stats{}, err
		}
		count := 0
		for _, key := range keys {
			rs, err := s.essids.Get(essid, key)
			if err != nil {
				return ports.Stats{}, err
			}
			count += rs.Len()
		}
		solved[essid] = count
	}

	return ports.Stats{TotalPasswords: total, SolvedByESSID: solved}, nil
}

// Close flushes the password store's buffer.
func (s *FSStorage) Close() error {
	return s.passwords.Close()
}
