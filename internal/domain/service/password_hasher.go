// Package service declares the ports the use cases need from the outside
// world: hashing, clock, event publishing and metrics.
package service

// PasswordHasher turns plaintext passwords into stored hashes. Use cases never
// persist or log the plaintext they hand to it.
type PasswordHasher interface {
	// Hash returns the stored form of password. It fails with
	// ErrInvalidPassword for passwords the algorithm cannot represent and
	// with ErrPasswordHashFailed otherwise.
	Hash(password string) (string, error)

	// Check reports whether password produces hash. Malformed hashes never match.
	Check(password, hash string) bool
}
