package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jslhs/pyrit/internal/core/domain"
)

// FSPasswordStore is the filesystem-backed PasswordStore (§4.2): passwords
// are bucketed by H1(pw) into 256 subdirectories, buffered in memory, and
// flushed as PAW2 containers once the buffer reaches workunitSize entries.
// Grounded on storage.py's PasswordStore/FSStorage split.
type FSPasswordStore struct {
	mu          sync.Mutex
	basePath    string
	buffer      map[string][]string
	pending     int
	workunitSize int
	uniqueCheck bool

	seen       map[string]struct{}
	seenLoaded bool
}

// NewFSPasswordStore creates a password store rooted at basePath/passwords.
// If uniqueCheck is true, StorePassword consults (and maintains) an
// in-memory index of every password already on disk and silently drops
// repeats; the index is built lazily on first use by scanning every
// existing bucket. With uniqueCheck false no index is built or consulted,
// so the same password can end up duplicated across bucket files (§9 open
// question: this is the documented invariant loss of turning it off).
func NewFSPasswordStore(basePath string, workunitSize int, uniqueCheck bool) *FSPasswordStore {
	return &FSPasswordStore{
		basePath:     filepath.Join(basePath, "passwords"),
		buffer:       make(map[string][]string),
		workunitSize: workunitSize,
		uniqueCheck:  uniqueCheck,
	}
}

func (s *FSPasswordStore) path(h1, key string) string {
	return filepath.Join(s.basePath, h1, key+".pw")
}

func splitCompoundKey(key string) (h1, digest string, err error) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: malformed password key %q", domain.ErrValue, key)
	}
	return parts[0], parts[1], nil
}

// Contains reports whether key (an "H1/digest" compound key) exists.
func (s *FSPasswordStore) Contains(key string) bool {
	h1, digest, err := splitCompoundKey(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(s.path(h1, digest))
	return err == nil
}

// IterKeys lists every stored bucket's compound key.
func (s *FSPasswordStore) IterKeys() ([]string, error) {
	var keys []string
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	for _, h1dir := range entries {
		if !h1dir.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.basePath, h1dir.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		for _, f := range files {
			if name, ok := strings.CutSuffix(f.Name(), ".pw"); ok {
				keys = append(keys, h1dir.Name()+"/"+name)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get reads and decodes the bucket stored under key.
func (s *FSPasswordStore) Get(key string) (domain.PasswordBucket, error) {
	h1, digest, err := splitCompoundKey(key)
	if err != nil {
		return domain.PasswordBucket{}, err
	}
	blob, err := os.ReadFile(s.path(h1, digest))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.PasswordBucket{}, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
		}
		return domain.PasswordBucket{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	pws, err := decodePAW2(blob)
	if err != nil {
		return domain.PasswordBucket{}, err
	}
	return domain.PasswordBucket{Key: key, H1: h1, Passwords: pws}, nil
}

// Delete removes the bucket stored under key.
func (s *FSPasswordStore) Delete(key string) error {
	h1, digest, err := splitCompoundKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(h1, digest)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, key)
		}
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// Size returns the number of passwords in the bucket stored under key.
func (s *FSPasswordStore) Size(key string) (int, error) {
	b, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	return b.Len(), nil
}

func (s *FSPasswordStore) loadSeenLocked() error {
	if s.seenLoaded {
		return nil
	}
	s.seen = make(map[string]struct{})
	keys, err := s.IterKeys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		b, err := s.Get(key)
		if err != nil {
			continue
		}
		for _, pw := range b.Passwords {
			s.seen[pw] = struct{}{}
		}
	}
	s.seenLoaded = true
	return nil
}

// StorePassword normalizes, validates, and buffers pw under its H1 bucket
// (§4.2), flushing automatically once the buffer reaches workunitSize
// entries. A password whose length is outside
// [MinPasswordLength, MaxPasswordLength] is dropped without error.
func (s *FSPasswordStore) StorePassword(pw string) error {
	pw = domain.NormalizePassword(pw)
	if !domain.ValidPassword(pw) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uniqueCheck {
		if err := s.loadSeenLocked(); err != nil {
			return err
		}
		if _, ok := s.seen[pw]; ok {
			return nil
		}
		s.seen[pw] = struct{}{}
	}

	h1 := domain.H1(pw)
	s.buffer[h1] = append(s.buffer[h1], pw)
	s.pending++
	if s.workunitSize > 0 && s.pending >= s.workunitSize {
		return s.flushLocked()
	}
	return nil
}

// FlushBuffer writes every buffered H1 bucket to disk as a PAW2 container.
func (s *FSPasswordStore) FlushBuffer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *FSPasswordStore) flushLocked() error {
	for h1, pws := range s.buffer {
		if len(pws) == 0 {
			continue
		}
		key, blob, err := encodePAW2(pws)
		if err != nil {
			return err
		}
		dir := filepath.Join(s.basePath, h1)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if err := os.WriteFile(s.path(h1, key), blob, 0644); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
	}
	s.buffer = make(map[string][]string)
	s.pending = 0
	return nil
}

// Close flushes any buffered passwords. Per §5, an aborting caller should
// not call Close and should let the buffer be dropped instead.
func (s *FSPasswordStore) Close() error {
	return s.FlushBuffer()
}
