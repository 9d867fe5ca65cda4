package domain

import "errors"

// Sentinel errors surfaced by the storage and scheduling subsystems.
// Callers match with errors.Is.
var (
	// ErrStorage marks malformed containers, wrong ESSIDs, or bad headers.
	ErrStorage = errors.New("storage error")

	// ErrDigest marks an integrity check failure (a checksum or MD5
	// mismatch on a stored blob).
	ErrDigest = errors.New("digest error")

	// ErrValue marks a bad ESSID length, bad workunit_size, or a
	// repackaged duplicate-constraint race.
	ErrValue = errors.New("value error")

	// ErrNotFound marks an unknown ESSID or key.
	ErrNotFound = errors.New("key error")

	// ErrCoreDead marks a worker core that has stopped unexpectedly; fatal
	// to the scheduler and surfaced on every call that waits.
	ErrCoreDead = errors.New("core died unexpectedly")

	// ErrNoHandshake marks the absence of a usable reconstructed handshake.
	ErrNoHandshake = errors.New("no handshake available")

	// ErrAmbiguousAP marks an ESSID selection advertised by more than one
	// AccessPoint.
	ErrAmbiguousAP = errors.New("ambiguous access point selection")
)
