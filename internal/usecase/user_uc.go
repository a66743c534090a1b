package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/logging"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/metrics"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user registration and lookups used by the pipeline and
// the admin surface.
type UserUseCase interface {
	// EnsureUser registers the user on first contact and refreshes name
	// fields afterwards. Idempotent; exactly one concurrent caller observes
	// Created for a new id.
	EnsureUser(ctx context.Context, tgID int64, names model.Names) (repository.EnsureResult, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	ledger       repository.LedgerRepository
	initialGrant int64
	log          *zerolog.Logger
}

func NewUserUseCase(ledger repository.LedgerRepository, initialGrant int64, logger *zerolog.Logger) *userUC {
	return &userUC{ledger: ledger, initialGrant: initialGrant, log: logger}
}

func (u *userUC) EnsureUser(ctx context.Context, tgID int64, names model.Names) (repository.EnsureResult, error) {
	defer logging.TraceDuration(u.log, "UserUC.EnsureUser")()

	res, err := u.ledger.EnsureUser(ctx, repository.NoTX, tgID, names)
	if err != nil {
		return repository.EnsureResult{}, err
	}
	if res.Created {
		u.log.Info().Int64("tg_id", tgID).Int64("initial_balance", res.User.CreditBalance).Msg("user registered")
		if u.initialGrant > 0 {
			metrics.AddCreditsGranted("register", u.initialGrant)
		}
	}
	return res, nil
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	return u.ledger.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	return u.ledger.CountUsers(ctx, repository.NoTX)
}
