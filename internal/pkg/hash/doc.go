// Package hash hashes and verifies secrets.
//
// Bcrypt is used for account passwords. HMACSHA256 is deterministic and is
// used for one-time codes at rest, where the stored value must be looked up by
// equality.
package hash
