package totp

import "crypto/subtle"

// equalCode compares two codes in time that depends only on their length.
func equalCode(expected, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}
