package core

import "errors"

// Sentinel errors returned by the service and the stores. Their messages are
// the patterns MapError matches, so keep the two in sync.
var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrStudentInactive    = errors.New("student inactive")
	ErrAlreadyRegistered  = errors.New("already registered today")
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrFileTooLarge       = errors.New("file too large")
	ErrEmptyFile          = errors.New("empty file")
)
