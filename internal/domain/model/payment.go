package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PaymentStatus mirrors the processor's terminal and intermediate states.
type PaymentStatus string

const (
	PaymentStatusWaiting    PaymentStatus = "waiting"
	PaymentStatusConfirming PaymentStatus = "confirming"
	PaymentStatusFinished   PaymentStatus = "finished"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusExpired    PaymentStatus = "expired"
)

// ProductKind classifies what a finished invoice grants.
type ProductKind string

const (
	ProductSubscription ProductKind = "subscription"
	ProductCredits      ProductKind = "credits"
	ProductUnknown      ProductKind = "unknown"
)

// ProductTag is the parsed form of an invoice's order description,
// e.g. "subscription" or "credits_400".
type ProductTag struct {
	Kind    ProductKind
	Credits int64 // set iff Kind == ProductCredits
}

func (t ProductTag) String() string {
	switch t.Kind {
	case ProductCredits:
		return fmt.Sprintf("credits_%d", t.Credits)
	default:
		return string(t.Kind)
	}
}

// ParseProductTag extracts the product tag from the invoice description.
// Unknown tags are acknowledged but never mutate state.
func ParseProductTag(s string) ProductTag {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == string(ProductSubscription) {
		return ProductTag{Kind: ProductSubscription}
	}
	if rest, ok := strings.CutPrefix(s, "credits_"); ok {
		if n, err := strconv.ParseInt(rest, 10, 64); err == nil && n > 0 {
			return ProductTag{Kind: ProductCredits, Credits: n}
		}
	}
	return ProductTag{Kind: ProductUnknown}
}

// PaymentNotification is the parsed IPN body (signature already verified).
// OrderID carries the Telegram user id assigned at invoice creation.
type PaymentNotification struct {
	Status        PaymentStatus
	InvoiceID     string
	OrderID       string
	Description   string
	PriceAmount   float64
	PriceCurrency string
	PayCurrency   string
	Raw           []byte
}

func (n *PaymentNotification) UserID() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(n.OrderID), 10, 64)
}

// Purchase is one row of the append-only purchase log, unique on InvoiceID.
type Purchase struct {
	InvoiceID  string
	UserID     int64
	ProductTag string
	Amount     float64
	Currency   string
	RawPayload []byte
	ReceivedAt time.Time
}
