package repository

import "errors"

// Common repository errors
var (
	// ErrTaskNotFound is returned when a task does not exist or belongs to another owner
	ErrTaskNotFound = errors.New("task not found")

	// ErrUserNotFound is returned when a user to update does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when a unique index rejects a new user's email or username
	ErrUserExists = errors.New("user already exists")
)
