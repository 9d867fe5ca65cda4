package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePassword(t *testing.T) {
	assert.Equal(t, "hunter2", NormalizePassword("hunter2\r\n"))
	assert.Equal(t, "hunter2", NormalizePassword("hunter2\n"))
	assert.Equal(t, "hunter2", NormalizePassword("hunter2"))
}

func TestValidPassword(t *testing.T) {
	assert.False(t, ValidPassword("short"))
	assert.True(t, ValidPassword("barbarbar"))
	assert.True(t, ValidPassword(string(make([]byte, MaxPasswordLength))))
	assert.False(t, ValidPassword(string(make([]byte, MaxPasswordLength+1))))
}

func TestH1IsStableAndTwoHexDigits(t *testing.T) {
	bucket := H1("barbarbar")
	assert.Len(t, bucket, 2)
	assert.Equal(t, bucket, H1("barbarbar"))
}

func TestH1SpreadsAcrossManyBuckets(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		seen[H1(string(rune(i))+"filler!!")] = true
	}
	// A reasonably distributed hash should hit a good fraction of the 256
	// possible two-hex-digit buckets across a few thousand distinct inputs.
	assert.Greater(t, len(seen), 100)
}
