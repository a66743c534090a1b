package payment

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway mints fake invoices for local runs without a payments key.
type NoopGateway struct {
	seq int64
	log *zerolog.Logger
}

func NewNoopGateway(logger *zerolog.Logger) *NoopGateway {
	return &NoopGateway{log: logger}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreateInvoice(ctx context.Context, req adapter.InvoiceRequest) (adapter.Invoice, error) {
	id := fmt.Sprintf("noop-%d", atomic.AddInt64(&g.seq, 1))
	g.log.Info().Str("invoice_id", id).Str("order_id", req.OrderID).Str("description", req.Description).
		Float64("amount", req.Amount).Msg("[noop-payment] invoice created")
	return adapter.Invoice{ID: id, URL: "https://example.invalid/pay/" + id}, nil
}
