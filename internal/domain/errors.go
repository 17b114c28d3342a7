package domain

import "errors"

var (
	// ErrSheetNotFound indicates the sheet could not be loaded.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrUserNotFound is returned by lookups that do not create users.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidPhone indicates a phone number outside the accepted numbering plan.
	ErrInvalidPhone = errors.New("invalid phone number")
)
