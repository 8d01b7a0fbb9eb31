package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an entity that is absent or owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation the caller may retry.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	// ErrActivityNotFound is returned when an activity cannot be located for the owner.
	ErrActivityNotFound = fmt.Errorf("activity %w", ErrNotFound)
	// ErrGoalNotFound is returned when a goal cannot be located for the owner.
	ErrGoalNotFound = fmt.Errorf("goal %w", ErrNotFound)
	// ErrCheckinNotFound is returned when a check-in cannot be located for the owner and goal.
	ErrCheckinNotFound = fmt.Errorf("check-in %w", ErrNotFound)
	// ErrUserNotFound is returned when the authenticated user no longer exists.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrCheckinConflict is returned by stores when a concurrent insert won the (user, goal, day) key.
	ErrCheckinConflict = fmt.Errorf("check-in already exists for this day: %w", ErrConflict)
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)

	// ErrDuplicateUser is returned when the email or username is already registered.
	ErrDuplicateUser error = &ValidationError{Message: "user with this email or username already exists"}
	// ErrUsernameTaken is returned by profile updates that collide with another user.
	ErrUsernameTaken error = &ValidationError{Message: "username already taken"}
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
