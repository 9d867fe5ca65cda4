package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jslhs/pyrit/internal/core/domain"
	"github.com/jslhs/pyrit/internal/core/ports"
)

// FSEssidStore is the filesystem-backed ESSIDStore (§4.3). Each ESSID gets
// its own directory named by the first 8 hex digits of MD5(essid), holding
// a sidecar file with the raw ESSID bytes (so directory names stay
// filesystem-safe regardless of what the ESSID contains) and one PYR2 file
// per result-set key. Grounded on storage.py's FSEssidStore, which applies
// the same hash-prefix scheme to sidestep ESSIDs with unsafe characters.
type FSEssidStore struct {
	mu       sync.Mutex
	basePath string

	loaded bool
	dirs   map[string]string // essid -> directory name
}

// NewFSEssidStore creates an ESSID store rooted at basePath/essids.
func NewFSEssidStore(basePath string) *FSEssidStore {
	return &FSEssidStore{basePath: filepath.Join(basePath, "essids")}
}

func essidDirName(essid string) string {
	sum := md5.Sum([]byte(essid))
	return hex.EncodeToString(sum[:])[:8]
}

func (s *FSEssidStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	s.dirs = make(map[string]string)
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.basePath, e.Name(), "essid"))
		if err != nil {
			continue // corrupted/partial directory, skip it like the source does
		}
		essid := string(raw)
		if e.Name() != essidDirName(essid) {
			log.Printf("storage: ESSID %q is corrupted (directory %s does not match hash), skipping", essid, e.Name())
			continue
		}
		s.dirs[essid] = e.Name()
	}
	s.loaded = true
	return nil
}

func (s *FSEssidStore) dirFor(essid string) (string, bool) {
	dir, ok := s.dirs[essid]
	return dir, ok
}

// CreateESSID registers essid, rejecting one that already exists so a typo
// doesn't silently attach results to the wrong network (§4.3).
func (s *FSEssidStore) CreateESSID(essid string) error {
	if err := domain.ValidateESSID(essid); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	if _, ok := s.dirFor(essid); ok {
		return fmt.Errorf("%w: essid %q already exists", domain.ErrValue, essid)
	}
	dir := essidDirName(essid)
	full := filepath.Join(s.basePath, dir)
	if err := os.MkdirAll(full, 0755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if err := os.WriteFile(filepath.Join(full, "essid"), []byte(essid), 0644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	s.dirs[essid] = dir
	return nil
}

// Contains reports whether essid has been created.
func (s *FSEssidStore) Contains(essid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return false
	}
	_, ok := s.dirFor(essid)
	return ok
}

// IterESSIDs lists every created ESSID.
func (s *FSEssidStore) IterESSIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.dirs))
	for essid := range s.dirs {
		out = append(out, essid)
	}
	sort.Strings(out)
	return out, nil
}

func (s *FSEssidStore) keyPath(essid, key string) (string, error) {
	dir, ok := s.dirFor(essid)
	if !ok {
		return "", fmt.Errorf("%w: essid %q", domain.ErrNotFound, essid)
	}
	return filepath.Join(s.basePath, dir, key+".pyr"), nil
}

// ContainsKey reports whether essid has a result set stored under key.
func (s *FSEssidStore) ContainsKey(essid, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return false
	}
	path, err := s.keyPath(essid, key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// KeyCount returns the number of result-set keys stored for essid.
func (s *FSEssidStore) KeyCount(essid string) (int, error) {
	keys, err := s.IterKeys(essid)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// IterKeys lists every result-set key stored for essid.
func (s *FSEssidStore) IterKeys(essid string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	dir, ok := s.dirFor(essid)
	if !ok {
		return nil, fmt.Errorf("%w: essid %q", domain.ErrNotFound, essid)
	}
	root := filepath.Join(s.basePath, dir)
	var keys []string
	err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name, ok := strings.CutSuffix(path, ".pyr"); ok && !e.IsDir() {
			rel, err := filepath.Rel(root, name)
			if err != nil {
				return err
			}
			keys = append(keys, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get reads and decodes the result set stored for (essid, key).
func (s *FSEssidStore) Get(essid, key string) (domain.ResultSet, error) {
	s.mu.Lock()
	path, err := s.keyPath(essid, key)
	s.mu.Unlock()
	if err != nil {
		return domain.ResultSet{}, err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ResultSet{}, fmt.Errorf("%w: key %q", domain.ErrNotFound, key)
		}
		return domain.ResultSet{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	rs, err := decodeResultSet(essid, blob)
	if err != nil {
		return domain.ResultSet{}, err
	}
	rs.BucketKey = key
	return rs, nil
}

// Put stores rs under (essid, key), overwriting any prior result set there.
func (s *FSEssidStore) Put(essid, key string, rs domain.ResultSet) error {
	s.mu.Lock()
	path, err := s.keyPath(essid, key)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	rs.ESSID = essid
	blob, err := encodePYR2(rs)
	if err != nil {
		return err
	}
	// Password-store keys ("H1/digest") place the file in a subdirectory.
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if err := os.WriteFile(path, blob, 0644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// DeleteESSID removes essid and every result set stored under it.
func (s *FSEssidStore) DeleteESSID(essid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	dir, ok := s.dirFor(essid)
	if !ok {
		return fmt.Errorf("%w: essid %q", domain.ErrNotFound, essid)
	}
	if err := os.RemoveAll(filepath.Join(s.basePath, dir)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	delete(s.dirs, essid)
	return nil
}

// DeleteKey removes the result set stored under (essid, key).
func (s *FSEssidStore) DeleteKey(essid, key string) error {
	s.mu.Lock()
	path, err := s.keyPath(essid, key)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: key %q", domain.ErrNotFound, key)
		}
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// IterResults lazily streams every ResultSet stored under essid.
func (s *FSEssidStore) IterResults(essid string) (<-chan ports.ResultItem, error) {
	keys, err := s.IterKeys(essid)
	if err != nil {
		return nil, err
	}
	ch := make(chan ports.ResultItem)
	go func() {
		defer close(ch)
		for _, key := range keys {
			rs, err := s.Get(essid, key)
			ch <- ports.ResultItem{Key: key, ResultSet: rs, Err: err}
		}
	}()
	return ch, nil
}

// IterItems is an alias for IterResults kept for parity with the source's
// iterresults/iteritems pair (both stream (key, ResultSet) here since a
// ResultSet already carries its key).
func (s *FSEssidStore) IterItems(essid string) (<-chan ports.ResultItem, error) {
	return s.IterResults(essid)
}
