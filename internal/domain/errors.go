package domain

import "errors"

var (
	ErrMalformedEvent   = errors.New("malformed payment event")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrAlreadyConfirmed = errors.New("booking already confirmed")
	ErrDuplicatePayment = errors.New("payment already recorded")
)
