package domain

// PMKSize is the fixed length of a Pairwise Master Key in bytes.
const PMKSize = 32

// PasswordPMK is one (password, PMK) pair of an ordered ResultSet.
type PasswordPMK struct {
	Password string
	PMK      [PMKSize]byte
}

// ResultSet is an ordered sequence of (password, PMK) pairs for one
// (ESSID, BucketKey) (§3, PYR2/PYRT). The BucketKey ties a ResultSet back to
// the PasswordBucket it was computed from.
type ResultSet struct {
	ESSID     string
	BucketKey string
	Results   []PasswordPMK
}

// Len returns the number of (password, PMK) pairs in the set.
func (r ResultSet) Len() int {
	return len(r.Results)
}
