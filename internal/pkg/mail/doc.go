// Package mail sends email messages.
//
// Use cases depend on the Mail interface and the Message payload; SMTP is the
// delivery mechanism implemented here.
package mail
