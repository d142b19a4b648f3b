// Package otp generates short numeric one-time codes and keeps them in a
// single-use store.
//
// A Store holds at most one active code per key. Issuing a new code for a key
// supersedes the previous one, and Consume succeeds at most once for a given
// issued code even under concurrent callers.
package otp
