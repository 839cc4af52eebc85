package services

import "errors"

var (
	ErrMissingUser      = errors.New("missing user identity")
	ErrInvalidDate      = errors.New("invalid date")
	ErrDateNotPast      = errors.New("date must be before today")
	ErrWrongMonth       = errors.New("date is outside the current month")
	ErrQuotaExhausted   = errors.New("make-up quota exhausted")
	ErrAlreadyCheckedIn = errors.New("already checked in on that date")
	ErrQuitDateRequired = errors.New("quit date is required")
	ErrQuitDateInFuture = errors.New("quit date cannot be in the future")
	ErrQuitDateNotSet   = errors.New("quit date has not been set")
	ErrNotEligible      = errors.New("not eligible for a certificate yet")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrEmptyUpdate      = errors.New("no fields to update")
	ErrInvalidField     = errors.New("invalid field value")
	ErrInvalidPuffKind  = errors.New("invalid cigarette action")
	ErrInvalidCount     = errors.New("count must be at least 1")
	ErrInvalidShareType = errors.New("invalid share type")
)
