// Package cracker verifies candidate PMKs against a reconstructed
// handshake by deriving the PTK and recomputing the EAPOL MIC (§4.8).
// Grounded on pckttools.py's EAPOLAuthentication.test()/getpke() plus the
// scheduler's own worker-pool idiom (internal/core/services/scheduler) for
// the bounded fan-out.
package cracker

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"sync"

	"github.com/jslhs/pyrit/internal/core/domain"
)

// queueCapacity bounds the in-flight match buffer so a slow consumer
// applies backpressure to the worker pool instead of letting results pile
// up unbounded (§4.8).
const queueCapacity = 10

// Match is a PMK that produced the correct MIC against an Authentication.
type Match struct {
	Password string
	PMK      [32]byte
}

// Service verifies password/PMK candidates against one reconstructed
// Authentication in parallel.
type Service struct {
	workers int
}

// New creates a cracking Service with the given worker count. workers <= 0
// is treated as a single worker (no parallelism).
func New(workers int) *Service {
	if workers <= 0 {
		workers = 1
	}
	return &Service{workers: workers}
}

// Crack consumes candidates and emits every one whose PMK reproduces
// auth.MIC. The returned channel closes once candidates is exhausted (or
// ctx is cancelled) and every worker has finished. Callers that stop
// reading early should cancel ctx to let workers exit promptly.
func (s *Service) Crack(ctx context.Context, auth domain.Authentication, candidates <-chan domain.PasswordPMK) <-chan Match {
	matches := make(chan Match, queueCapacity)
	pke := auth.PKE()

	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case cand, ok := <-candidates:
					if !ok {
						return
					}
					if verify(auth, pke, cand.PMK) {
						select {
						case matches <- Match{Password: cand.Password, PMK: cand.PMK}:
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(matches)
	}()

	return matches
}

// verify derives the PTK's Key Confirmation Key from pmk and pke, computes
// the scheme-appropriate candidate MIC over auth.MICBody, and compares it
// against auth.MIC in constant time.
func verify(auth domain.Authentication, pke []byte, pmk [32]byte) bool {
	kck := deriveKCK(pmk, pke)
	var candidate [16]byte
	switch auth.Scheme {
	case domain.SchemeHMACMD5RC4:
		h := hmac.New(md5.New, kck[:])
		h.Write(auth.MICBody)
		copy(candidate[:], h.Sum(nil))
	default:
		// RSN/CCMP (and unknown, defaulting to the more common modern
		// scheme) use HMAC-SHA1 truncated to 128 bits.
		h := hmac.New(sha1.New, kck[:])
		h.Write(auth.MICBody)
		copy(candidate[:], h.Sum(nil)[:16])
	}
	return hmac.Equal(candidate[:], auth.MIC[:])
}

// deriveKCK runs the 802.11i PRF (four HMAC-SHA1 blocks keyed by pmk over
// pke, with pke's final byte standing in for the block counter) and
// returns the first 128 bits of the resulting PTK — the Key Confirmation
// Key used for MIC verification.
func deriveKCK(pmk [32]byte, pke []byte) [16]byte {
	data := make([]byte, len(pke))
	copy(data, pke)

	var ptk [64]byte
	for i := 0; i < 4; i++ {
		data[len(data)-1] = byte(i)
		h := hmac.New(sha1.New, pmk[:])
		h.Write(data)
		block := h.Sum(nil)
		n := copy(ptk[i*20:], block)
		_ = n
	}

	var kck [16]byte
	copy(kck[:], ptk[:16])
	return kck
}
