package order

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAlreadyPaid  = errors.New("order already paid")
	ErrOrderNotPayable   = errors.New("order cannot be paid")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidAmount     = errors.New("invalid payment amount")
	ErrInvalidPaymentRef = errors.New("invalid payment reference")
)
