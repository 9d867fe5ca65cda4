package domain

// PasswordBucket is an immutable set of passwords that all share an H1
// bucket-selector (§3, PAW2). Key identifies the stored bucket: the
// filesystem store uses "<H1>/<hex MD5 digest of the compressed on-disk
// payload>". It is assigned when the bucket is serialized, not by the
// bucket itself.
type PasswordBucket struct {
	Key       string
	H1        string
	Passwords []string
}

// Len returns the number of passwords in the bucket.
func (b PasswordBucket) Len() int {
	return len(b.Passwords)
}
