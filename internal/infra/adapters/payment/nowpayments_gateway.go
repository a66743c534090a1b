package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NOWPaymentsGateway)(nil)

const defaultNOWPaymentsBase = "https://api.nowpayments.io/v1"

// NOWPaymentsGateway mints hosted invoices against the NOWPayments REST API.
// The IPN callback that settles them lands on the payments webhook, signed
// with a separate secret; this adapter only creates.
type NOWPaymentsGateway struct {
	apiKey string
	base   string
	client *http.Client
	log    *zerolog.Logger
}

func NewNOWPaymentsGateway(apiKey, base string, logger *zerolog.Logger) (*NOWPaymentsGateway, error) {
	if apiKey == "" {
		return nil, errors.New("payments api key empty")
	}
	if base == "" {
		base = defaultNOWPaymentsBase
	}
	return &NOWPaymentsGateway{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logger,
	}, nil
}

func (g *NOWPaymentsGateway) Name() string { return "nowpayments" }

func (g *NOWPaymentsGateway) CreateInvoice(ctx context.Context, req adapter.InvoiceRequest) (adapter.Invoice, error) {
	body := struct {
		PriceAmount      float64 `json:"price_amount"`
		PriceCurrency    string  `json:"price_currency"`
		OrderID          string  `json:"order_id"`
		OrderDescription string  `json:"order_description"`
	}{
		PriceAmount:      req.Amount,
		PriceCurrency:    req.Currency,
		OrderID:          req.OrderID,
		OrderDescription: req.Description,
	}

	b, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+"/invoice", bytes.NewReader(b))
	if err != nil {
		return adapter.Invoice{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return adapter.Invoice{}, fmt.Errorf("nowpayments request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return adapter.Invoice{}, fmt.Errorf("nowpayments http %d", resp.StatusCode)
	}

	var payload struct {
		ID         json.Number `json:"id"`
		InvoiceURL string      `json:"invoice_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.Invoice{}, fmt.Errorf("nowpayments decode: %w", err)
	}
	if payload.ID.String() == "" || payload.InvoiceURL == "" {
		return adapter.Invoice{}, errors.New("nowpayments: incomplete invoice response")
	}

	g.log.Debug().Str("invoice_id", payload.ID.String()).Str("order_id", req.OrderID).Msg("invoice created")
	return adapter.Invoice{ID: payload.ID.String(), URL: payload.InvoiceURL}, nil
}
