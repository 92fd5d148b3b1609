// Package validator provides struct validation behind a small interface.
//
// Business code depends on Validator; V10Validator is the
// go-playground/validator implementation with English messages.
package validator
