package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var paymentHashRegex = regexp.MustCompile(`^[a-z0-9]+$`)

// NewPaymentHash returns a random lowercase hex token identifying a payment.
func NewPaymentHash() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsPaymentHash reports whether s is a well-formed payment token.
func IsPaymentHash(s string) bool {
	return paymentHashRegex.MatchString(s)
}
