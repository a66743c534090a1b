package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/logging"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/metrics"
)

const sourcePayments = "payments"

// ipnBody is the wire shape of a NOWPayments IPN callback. Numeric ids are
// decoded as json.Number because the processor sends them unquoted.
type ipnBody struct {
	PaymentStatus    string      `json:"payment_status"`
	PaymentID        json.Number `json:"payment_id"`
	InvoiceID        json.Number `json:"invoice_id"`
	OrderID          string      `json:"order_id"`
	OrderDescription string      `json:"order_description"`
	PriceAmount      float64     `json:"price_amount"`
	PriceCurrency    string      `json:"price_currency"`
	PayCurrency      string      `json:"pay_currency"`
}

// handlePayments verifies the HMAC signature over the raw body, parses the
// IPN and applies it synchronously. Status mapping: 200 for applied AND for
// duplicates (the processor must stop retrying either way), 400 for bodies we
// can never act on, 500 for transient store failure so the processor retries.
func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	l := logging.With(r.Context(), s.log)

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		metrics.IncWebhook(sourcePayments, "malformed")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if !s.ipnAuth.Verify(raw, r.Header.Get(SigHeaderIPN)) {
		metrics.IncWebhook(sourcePayments, "unauthorized")
		l.Warn().Str("remote", r.RemoteAddr).Msg("payment webhook signature rejected")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body ipnBody
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&body); err != nil {
		metrics.IncWebhook(sourcePayments, "malformed")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	invoiceID := body.InvoiceID.String()
	if invoiceID == "" {
		invoiceID = body.PaymentID.String()
	}
	n := &model.PaymentNotification{
		Status:        model.PaymentStatus(body.PaymentStatus),
		InvoiceID:     invoiceID,
		OrderID:       body.OrderID,
		Description:   body.OrderDescription,
		PriceAmount:   body.PriceAmount,
		PriceCurrency: body.PriceCurrency,
		PayCurrency:   body.PayCurrency,
		Raw:           raw,
	}

	err = s.payments.ApplyNotification(r.Context(), n)
	switch {
	case err == nil:
		metrics.IncWebhook(sourcePayments, "ok")
	case errors.Is(err, domain.ErrDuplicateInvoice):
		metrics.IncWebhook(sourcePayments, "duplicate")
		l.Info().Str("invoice_id", n.InvoiceID).Msg("duplicate invoice acknowledged")
	case errors.Is(err, domain.ErrInvalidArgument):
		metrics.IncWebhook(sourcePayments, "malformed")
		l.Warn().Err(err).Msg("unusable payment notification")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	default:
		metrics.IncWebhook(sourcePayments, "store_error")
		l.Error().Err(err).Str("invoice_id", n.InvoiceID).Msg("payment apply failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveWebhookLatency(sourcePayments, float64(time.Since(start).Milliseconds()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
