// internal/payment/gateway.go

// Package payment defines the consumed payment gateway contract. The
// gateway itself is an external collaborator; this package only shapes its
// request/response surface and its two failure classes.
package payment

import (
	"context"
	"errors"
	"fmt"
)

// Payer identifies who is charged for a booking.
type Payer struct {
	Name    string
	Email   string
	Contact string
}

// Result carries the gateway's reference for a captured charge.
type Result struct {
	PaymentRef string
}

// Gateway authorizes and captures a single charge. The reference is the
// slot id being paid for; the gateway treats it as an opaque idempotency
// key. Amount is in currency minor units.
type Gateway interface {
	AuthorizeAndCapture(ctx context.Context, reference string, amount int64, payer Payer) (Result, error)
}

// DeclinedError is terminal for the charge: the caller must not retry.
type DeclinedError struct {
	Code string
}

func (e DeclinedError) Error() string {
	if e.Code == "" {
		return "payment declined"
	}
	return fmt.Sprintf("payment declined: %s", e.Code)
}

// GatewayError is a transport or gateway-side failure (network, 5xx). The
// charge outcome is unknown; it is surfaced to the user as retryable.
type GatewayError struct {
	Status int
	Err    error
}

func (e GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("payment gateway error (status %d)", e.Status)
	}
	return fmt.Sprintf("payment gateway error: %v", e.Err)
}

func (e GatewayError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the user may retry the charge.
func IsRetryable(err error) bool {
	var ge GatewayError
	return errors.As(err, &ge)
}
