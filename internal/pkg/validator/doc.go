// Package validator checks request inputs before usecases act on them.
//
// Failures are returned as V10ValidationError, whose Values map snake_case
// field names to English messages ready for the error payload. The custom
// "password" and "otpcode" rules cover the identity inputs.
package validator
