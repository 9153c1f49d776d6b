// Package username validates cloud-variable handshake usernames.
//
// Validation is byte-wise, not Unicode-aware, and is grounded on the
// original protocol's username.c: a 256-entry lookup table built once and a
// length check of 1-20 bytes inclusive.
package username

const (
	minLength = 1
	maxLength = 20
)

var allowed [256]bool

func init() {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_-0123456789"
	for i := 0; i < len(chars); i++ {
		allowed[chars[i]] = true
	}
}

// Validate reports whether name is a legal cloud-variable username: 1-20
// bytes, each in [A-Za-z0-9_-].
func Validate(name []byte) bool {
	if len(name) < minLength || len(name) > maxLength {
		return false
	}
	for _, ch := range name {
		if !allowed[ch] {
			return false
		}
	}
	return true
}
