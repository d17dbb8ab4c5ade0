package service

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrEditBlocked          = errors.New("agreement cannot be edited in its current status")
	ErrConfirmationRequired = errors.New("deletion must be confirmed")
	ErrCalculationDisabled  = errors.New("calculation is not available")
)
