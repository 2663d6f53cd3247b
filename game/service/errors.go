package service

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error identifier sent to peers
type Code string

const (
	CodeNotLoggedIn        Code = "NOT_LOGGED_IN"
	CodeAlreadyLoggedIn    Code = "ALREADY_LOGGED_IN"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeGameNotFound       Code = "GAME_NOT_FOUND"
	CodeNotAParticipant    Code = "NOT_A_PARTICIPANT"
	CodeNotYourTurn        Code = "NOT_YOUR_TURN"
	CodeIllegalMove        Code = "ILLEGAL_MOVE"
	CodeInviteSelf         Code = "INVITE_SELF"
	CodePlayerUnavailable  Code = "PLAYER_UNAVAILABLE"
	CodePlayerNotFound     Code = "PLAYER_NOT_FOUND"
	CodeInvitationNotFound Code = "INVITATION_NOT_FOUND"
	CodeMalformedMessage   Code = "MALFORMED_MESSAGE"
	CodeSenderMismatch     Code = "SENDER_MISMATCH"
	CodeUnexpectedKind     Code = "UNEXPECTED_KIND"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeServerFull         Code = "SERVER_FULL"
	CodeStateCorrupted     Code = "STATE_CORRUPTED"
	CodeInternal           Code = "INTERNAL"
)

// Registry errors returned by the session manager
var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerExists       = errors.New("player already logged in")
	ErrPlayerUnavailable  = errors.New("player is not available")
	ErrInviteSelf         = errors.New("cannot invite yourself")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotParticipant     = errors.New("player is not part of this game")
)

// Error carries a stable code alongside the underlying cause
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Description is the human-readable part sent in ERROR_MESSAGE
func (e *Error) Description() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return e.Err.Error()
}

// NewError wraps err with code
func NewError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Errorf formats a message and wraps it with code
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf maps any error to its stable code. Registry sentinels map to their
// natural code; anything unknown is INTERNAL.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, ErrPlayerNotFound):
		return CodePlayerNotFound
	case errors.Is(err, ErrPlayerExists):
		return CodeAlreadyLoggedIn
	case errors.Is(err, ErrPlayerUnavailable):
		return CodePlayerUnavailable
	case errors.Is(err, ErrInviteSelf):
		return CodeInviteSelf
	case errors.Is(err, ErrInvitationNotFound):
		return CodeInvitationNotFound
	case errors.Is(err, ErrSessionNotFound):
		return CodeGameNotFound
	case errors.Is(err, ErrNotParticipant):
		return CodeNotAParticipant
	}
	return CodeInternal
}

// wrap attaches the natural code to a registry error
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Code: CodeOf(err), Err: err}
}
