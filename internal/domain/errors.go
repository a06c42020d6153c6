package domain

import (
	"errors"
	"fmt"
)

// Infrastructure sentinels. These never cross the public operation surface;
// the coded taxonomy below does.
var (
	ErrNotFound = errors.New("not found")
	ErrLockHeld = errors.New("lock already held")
)

// Code is a stable numeric error code forming the external contract surface.
// Codes must never be renumbered across versions.
type Code uint32

const (
	CodeUnauthorized        Code = 100
	CodeInvalidBetAmount    Code = 101
	CodeInvalidDuration     Code = 102
	CodeBetNotFound         Code = 103
	CodeBetNotActive        Code = 104
	CodeBetNotExpired       Code = 105
	CodeInsufficientBalance Code = 106
	CodeInvalidPrediction   Code = 107
	CodeOracleError         Code = 108
)

// Error is a rejected precondition carrying its stable numeric code. Two
// Errors match under errors.Is when their codes are equal, so distinct
// internal causes can share one public code (pool capacity exhaustion is
// reported as CodeInvalidBetAmount, same as a malformed amount).
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("err u%d: %s", e.Code, e.Msg)
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrUnauthorized        = &Error{Code: CodeUnauthorized, Msg: "unauthorized"}
	ErrInvalidBetAmount    = &Error{Code: CodeInvalidBetAmount, Msg: "invalid bet amount"}
	ErrPoolCapacity        = &Error{Code: CodeInvalidBetAmount, Msg: "invalid bet amount"} // capacity exhaustion, same public code
	ErrInvalidDuration     = &Error{Code: CodeInvalidDuration, Msg: "invalid duration"}
	ErrBetNotFound         = &Error{Code: CodeBetNotFound, Msg: "bet not found"}
	ErrBetNotActive        = &Error{Code: CodeBetNotActive, Msg: "bet not active"}
	ErrBetNotExpired       = &Error{Code: CodeBetNotExpired, Msg: "bet not yet expired"}
	ErrInsufficientBalance = &Error{Code: CodeInsufficientBalance, Msg: "insufficient balance"}
	ErrInvalidPrediction   = &Error{Code: CodeInvalidPrediction, Msg: "invalid prediction"}
	ErrOracleError         = &Error{Code: CodeOracleError, Msg: "oracle error"}
)
