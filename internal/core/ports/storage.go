package ports

import (
	"github.com/jslhs/pyrit/internal/core/domain"
)

// PasswordStore persists deduplicated password buckets keyed by content
// digest (§4.2).
type PasswordStore interface {
	Contains(key string) bool
	IterKeys() ([]string, error)
	Get(key string) (domain.PasswordBucket, error)
	Delete(key string) error
	Size(key string) (int, error)

	// StorePassword validates, buckets by H1, and buffers pw in memory.
	// Once the total number of buffered passwords across all buckets
	// reaches the configured workunit size, every buffered bucket is
	// flushed; a single bucket reaching that size is not flushed on its
	// own.
	StorePassword(pw string) error

	// FlushBuffer flushes every in-memory H1 bucket to disk.
	FlushBuffer() error

	// Close flushes on a normal call (mirrors the Python context-manager's
	// __exit__ with exc_type is None); callers that abort on error should
	// not call Close and should let buffered passwords be dropped (§5).
	Close() error
}

// ESSIDStore persists PMK result sets keyed by (ESSID, BucketKey) (§4.3).
type ESSIDStore interface {
	CreateESSID(essid string) error
	Contains(essid string) bool
	IterESSIDs() ([]string, error)
	ContainsKey(essid, key string) bool
	KeyCount(essid string) (int, error)
	IterKeys(essid string) ([]string, error)

	Get(essid, key string) (domain.ResultSet, error)
	Put(essid, key string, rs domain.ResultSet) error

	DeleteESSID(essid string) error
	DeleteKey(essid, key string) error

	// IterResults lazily streams every ResultSet stored under essid.
	IterResults(essid string) (<-chan ResultItem, error)
	// IterItems lazily streams every (key, ResultSet) pair stored under
	// essid.
	IterItems(essid string) (<-chan ResultItem, error)
}

// ResultItem is one element of a lazy ESSID result iteration; Err is set
// and ResultSet is zero if reading that element failed, while Key still
// names the element.
type ResultItem struct {
	Key       string
	ResultSet domain.ResultSet
	Err       error
}

// Stats summarizes cross-store occupancy (§4.4).
type Stats struct {
	TotalPasswords int
	SolvedByESSID  map[string]int
}

// Storage combines the password store and the ESSID store into one unit
// and exposes cross-store operations (§4.4). The filesystem backend is the
// only implementation in this module.
type Storage interface {
	Passwords() PasswordStore
	ESSIDs() ESSIDStore

	// Delete removes key from every ESSID that references it, then from
	// the password store.
	Delete(key string) error

	// GetStats returns the total password count and, per ESSID, the
	// number of passwords solved (i.e. present in that ESSID's result
	// sets).
	GetStats() (Stats, error)

	Close() error
}
