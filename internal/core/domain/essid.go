package domain

import "fmt"

// MaxESSIDLength and MinESSIDLength bound a valid 802.11 network name (§3).
const (
	MinESSIDLength = 1
	MaxESSIDLength = 32
)

// ValidateESSID checks that essid is a valid network name (1-32 bytes).
func ValidateESSID(essid string) error {
	if len(essid) < MinESSIDLength || len(essid) > MaxESSIDLength {
		return fmt.Errorf("%w: essid length %d outside [%d,%d]", ErrValue, len(essid), MinESSIDLength, MaxESSIDLength)
	}
	return nil
}
