package payment

import "errors"

var (
	ErrEmptyClientCredentials = errors.New("monobank client credentials are empty")
	ErrMissingPageURL         = errors.New("monobank response has no pageUrl")
	ErrInvalidSignature       = errors.New("invalid webhook signature")
	ErrInvalidPublicKey       = errors.New("invalid monobank public key")
	ErrInvalidAmount          = errors.New("invalid payment amount")
)
