package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
)

var _ StatsUseCase = (*statsUC)(nil)

// Stats is the operator-facing snapshot served by the admin API.
type Stats struct {
	Users               int                `json:"users"`
	ActiveSubscriptions int                `json:"active_subscriptions"`
	RevenueByCurrency   map[string]float64 `json:"revenue_by_currency"`
}

type StatsUseCase interface {
	Snapshot(ctx context.Context) (Stats, error)
}

type statsUC struct {
	ledger    repository.LedgerRepository
	purchases repository.PurchaseRepository
	now       func() time.Time
	log       *zerolog.Logger
}

func NewStatsUseCase(ledger repository.LedgerRepository, purchases repository.PurchaseRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{ledger: ledger, purchases: purchases, now: time.Now, log: logger}
}

func (s *statsUC) Snapshot(ctx context.Context) (Stats, error) {
	users, err := s.ledger.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return Stats{}, err
	}
	active, err := s.ledger.CountActiveSubscriptions(ctx, repository.NoTX, s.now())
	if err != nil {
		return Stats{}, err
	}
	revenue, err := s.purchases.SumRevenueByCurrency(ctx, repository.NoTX)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Users: users, ActiveSubscriptions: active, RevenueByCurrency: revenue}, nil
}
