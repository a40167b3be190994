package services

import (
	"errors"
	"fmt"

	"sata_school_go/utils"
)

// Typed failures recovered at the request boundary. Controllers translate
// them into stable status codes; anything else is treated as an
// infrastructure fault and becomes a generic 500.

// ErrNotFound covers entities missing or outside the actor's tenant scope.
var ErrNotFound = errors.New("not found")

// ErrForbidden covers tenant/ownership mismatches on otherwise valid tokens.
var ErrForbidden = errors.New("forbidden")

// ValidationError is a malformed or missing required field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError is a uniqueness violation (duplicate employee number,
// duplicate session key, duplicate attendance entry).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// OverpayError rejects a payment that would push the month's accumulated
// total past the student's monthly fee.
type OverpayError struct {
	Limit       int64
	AlreadyPaid int64
	Attempted   int64
}

func (e *OverpayError) Error() string {
	return fmt.Sprintf("payment rejected: %d already paid of %d limit, %d attempted", e.AlreadyPaid, e.Limit, e.Attempted)
}

// PriorMonthDebtError blocks a payment while the immediately preceding
// month is still outstanding.
type PriorMonthDebtError struct {
	Month utils.MonthKey
	Debt  int64
}

func (e *PriorMonthDebtError) Error() string {
	return fmt.Sprintf("outstanding debt of %d for %s", e.Debt, e.Month)
}

// TooSoonError is the scan debounce guard: a second event for the same
// person arrived less than a minute after the previous one.
type TooSoonError struct {
	WaitSeconds int
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("scan repeated too soon, wait %d more seconds", e.WaitSeconds)
}

// MinimumDwellError rejects an exit scan before the five-minute dwell floor.
type MinimumDwellError struct {
	MinutesLeft int
}

func (e *MinimumDwellError) Error() string {
	return fmt.Sprintf("exit too early, wait %d more minutes", e.MinutesLeft)
}

// AlreadyRecordedError rejects a manual absent mark when the person already
// has an entry for the day.
type AlreadyRecordedError struct {
	DateKey string
}

func (e *AlreadyRecordedError) Error() string {
	return fmt.Sprintf("attendance for %s already recorded", e.DateKey)
}

// LockedError rejects writes against a locked exam session.
type LockedError struct {
	SessionID uint
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("exam session %d is locked", e.SessionID)
}

// WrongPasswordError rejects a privileged payment edit/delete when the
// school's extra password does not match.
type WrongPasswordError struct{}

func (e *WrongPasswordError) Error() string { return "wrong password" }
