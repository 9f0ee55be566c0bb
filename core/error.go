package core

import (
	"errors"
	"maps"
	"strings"
)

// ErrorCode classifies a user-facing failure.
type ErrorCode string

const (
	NetworkError    ErrorCode = "network_error"
	ValidationError ErrorCode = "validation_error"
	AuthError       ErrorCode = "auth_error"
	RoomError       ErrorCode = "room_error"
	UnknownError    ErrorCode = "unknown_error"
)

// Title returns the short heading shown above an error of this code.
func (c ErrorCode) Title() string {
	switch c {
	case NetworkError:
		return "Connection Issue"
	case AuthError:
		return "Access Needed"
	case ValidationError:
		return "Quick Check"
	case RoomError:
		return "Room Issue"
	default:
		return "Heads Up"
	}
}

// AppError is a failure meant to be displayed to the viewer.
// It carries no cause chain; call sites construct it directly.
type AppError struct {
	code    ErrorCode
	message string
	details map[string]any
}

func NewAppError(code ErrorCode, message string, details map[string]any) *AppError {
	var d map[string]any
	if len(details) > 0 {
		d = maps.Clone(details)
	}
	return &AppError{code: code, message: message, details: d}
}

func (e *AppError) Code() ErrorCode { return e.code }

func (e *AppError) Message() string { return e.message }

// Details returns a copy of the structured details, or nil.
func (e *AppError) Details() map[string]any {
	if e.details == nil {
		return nil
	}
	return maps.Clone(e.details)
}

func (e *AppError) Error() string {
	return string(e.code) + ": " + e.message
}

// Friendly returns the message rewritten for display.
func (e *AppError) Friendly() string {
	return FriendlyMessage(e.code, e.message)
}

// AsAppError converts err to an AppError. Errors that are not already
// AppErrors become UnknownError values carrying the original message.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(UnknownError, err.Error(), nil)
}

// FriendlyMessage rewrites canned phrases into softer wording for the given code.
func FriendlyMessage(code ErrorCode, message string) string {
	switch code {
	case NetworkError:
		return "Looks like you're offline. Check your connection and try again."
	case ValidationError:
		message = strings.Replace(message, "Please enter", "Please add", 1)
		return strings.Replace(message, "cannot be empty", "is needed", 1)
	case AuthError:
		message = strings.Replace(message, "Authentication failed", "Couldn't verify your access", 1)
		return strings.Replace(message, "Invalid credentials", "Your login details don't match our records", 1)
	case RoomError:
		message = strings.Replace(message, "Failed to", "Couldn't", 1)
		return strings.Replace(message, "Room not found", "We couldn't find that room", 1)
	case UnknownError:
		return "Something unexpected happened. Let's try again?"
	default:
		return message
	}
}
