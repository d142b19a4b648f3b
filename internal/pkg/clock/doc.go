// Package clock provides a tiny time abstraction.
//
// OTP expiry and credential expiry are both decided against a Clocker, so
// tests can pin or advance time with Fixed instead of sleeping.
package clock
