package session

import "errors"

// Session cache errors.
var (
	// ErrNoActiveSession is returned when a write addresses a player without a session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrInsufficientBalance is returned when a debit would take a balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrSelfTransfer is returned when both sides of a transfer are the same player.
	ErrSelfTransfer = errors.New("cannot transfer to self")
	// ErrSessionClosed is returned when a removed or replaced session is inserted again.
	ErrSessionClosed = errors.New("session closed")
)
