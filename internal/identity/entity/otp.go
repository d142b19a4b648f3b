package entity

import "time"

// OTPRecord is an issued one-time code. CodeHash is the keyed hash of the
// code, never the code itself.
type OTPRecord struct {
	ID        int64
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	IsUsed    bool
}

// Acceptable reports whether the record can be consumed with codeHash at t.
func (o OTPRecord) Acceptable(email, codeHash string, t time.Time) bool {
	return !o.IsUsed && o.Email == email && o.CodeHash == codeHash && !t.After(o.ExpiresAt)
}
