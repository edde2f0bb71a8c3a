package domain

import "errors"

var (
	// ErrInvalidArgument is returned when a deposit or release request carries
	// a zero amount, a zero/invalid address, or an unknown duration unit
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOrderViolation is returned when a new schedule's start time precedes
	// the start time of the beneficiary's last recorded schedule
	ErrOrderViolation = errors.New("schedule start precedes last recorded start")

	// ErrTransferFailure is returned when the external token transfer is rejected
	ErrTransferFailure = errors.New("token transfer failed")

	// ErrWindowViolation is returned by the aggregated-slot variant when a
	// deposit's start time is in the past
	ErrWindowViolation = errors.New("start time outside permitted window")
)
