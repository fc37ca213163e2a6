package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable class of a failed bet.
type ErrorKind string

const (
	KindInsufficientFunds      ErrorKind = "insufficient_funds"
	KindGameUnavailable        ErrorKind = "game_unavailable"
	KindNoActiveSeed           ErrorKind = "no_active_seed"
	KindInvalidWager           ErrorKind = "invalid_wager"
	KindInvalidTarget          ErrorKind = "invalid_target"
	KindConcurrentModification ErrorKind = "concurrent_modification"
	KindInternalFault          ErrorKind = "internal_fault"
)

// Store sentinels. Stores wrap these; the engine turns them into kinds.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("concurrent modification")
)

type BetError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewBetError(kind ErrorKind, format string, args ...any) *BetError {
	return &BetError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapBetError(kind ErrorKind, err error, message string) *BetError {
	return &BetError{Kind: kind, Message: message, Err: err}
}

func (e *BetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *BetError) Unwrap() error { return e.Err }

// KindOf classifies err. Anything that is not a BetError is an internal fault,
// except a bare ErrConflict which is a concurrent modification.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var be *BetError
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, ErrConflict) {
		return KindConcurrentModification
	}
	return KindInternalFault
}

func (k ErrorKind) Retryable() bool {
	return k == KindConcurrentModification
}
