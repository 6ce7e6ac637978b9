// Package repository provides the durable storage implementations for
// player records.
package repository

import "errors"

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerExists   = errors.New("player already exists")
)
