package adapter

import "context"

// InvoiceRequest describes a purchase link to mint with the processor.
// OrderID carries the Telegram user id; Description carries the product tag
// ("subscription", "credits_400", ...) which the IPN echoes back.
type InvoiceRequest struct {
	OrderID     string
	Description string
	Amount      float64
	Currency    string
}

// Invoice is the processor's record of a payment intent.
type Invoice struct {
	ID  string
	URL string // user-facing payment page
}

// PaymentGateway is the port for the crypto payment processor's outbound API.
// Inbound notifications arrive over the IPN webhook, not through this port.
type PaymentGateway interface {
	Name() string
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
}
