package payment

import "context"

// Gateway is the provider transport: every call is authenticated with the
// merchant token.
type Gateway interface {
	CreateInvoice(ctx context.Context, req *InvoiceRequest) (*InvoiceResponse, error)
	GetInvoiceStatus(ctx context.Context, invoiceID string) (*InvoiceStatus, error)
	VerifySignature(ctx context.Context, body []byte, signature string) error
	Configured() bool
}
