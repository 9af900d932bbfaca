package service

import "errors"

// Validation errors are returned before anything reaches the store.
var (
	ErrEmptyTitle       = errors.New("title is required")
	ErrEmptyDescription = errors.New("description is required")
	ErrInvalidPriority  = errors.New("priority must be Low, Medium or High")
	ErrInvalidEmail     = errors.New("email address is not valid")
	ErrWeakPassword     = errors.New("password must be at least 8 characters and contain a number and an uppercase letter")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrEmailTaken       = errors.New("email is already registered")
	ErrReminderTime     = errors.New("reminder time must be in the future")
)

// ErrInvalidCredentials covers both an unknown user and a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")
