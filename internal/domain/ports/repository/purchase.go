package repository

import (
	"context"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
)

// PurchaseRepository is the append-only purchase log, unique on invoice id.
type PurchaseRepository interface {
	// Append inserts the record. A second insert with the same invoice id
	// returns domain.ErrAlreadyExists.
	Append(ctx context.Context, qx Tx, p *model.Purchase) error
	ListByUser(ctx context.Context, qx Tx, tgID int64) ([]*model.Purchase, error)
	// SumRevenueByCurrency totals finished purchases for the stats surface.
	SumRevenueByCurrency(ctx context.Context, qx Tx) (map[string]float64, error)
}
