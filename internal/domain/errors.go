package domain

import "errors"

var (
	ErrInvalidDate          = errors.New("booking date must be YYYY-MM-DD")
	ErrInvalidTime          = errors.New("time must be HH:MM")
	ErrInvalidTimeRange     = errors.New("end time must be after start time")
	ErrInvalidField         = errors.New("field id must be positive")
	ErrInvalidPaymentMethod = errors.New("payment method is required")
	ErrUserIDRequired       = errors.New("user id is required")

	ErrCredentialsRequired    = errors.New("email and password are required")
	ErrRegistrationIncomplete = errors.New("name, email and password are required")
)

var (
	ErrChannelClosed = errors.New("realtime channel is closed")
	ErrNotConnected  = errors.New("realtime channel is reconnecting")
)
