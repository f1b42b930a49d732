package service

import (
	"context"
	"time"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/voucher"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	topUpMethodVoucher = "tw_angpao"
	topUpStatusSuccess = "success"
)

type BalanceRepository interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	TopUpExists(ctx context.Context, reference string) (bool, error)
	CreditTopUp(ctx context.Context, topUp domain.TopUp) (int64, error)
	TopUps(ctx context.Context, userID int64) ([]domain.TopUp, error)
}

type VoucherRedeemer interface {
	Redeem(ctx context.Context, link string) (*voucher.Redemption, error)
}

type BalanceService struct {
	repo     BalanceRepository
	vouchers VoucherRedeemer
}

func NewBalanceService(repo BalanceRepository, vouchers VoucherRedeemer) *BalanceService {
	return &BalanceService{
		repo:     repo,
		vouchers: vouchers,
	}
}

func (b BalanceService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return b.repo.Balance(ctx, userID)
}

// TopUp redeems a gift voucher link and credits its amount to the user.
func (b BalanceService) TopUp(ctx context.Context, userID int64, link string) (*domain.TopUp, error) {
	code, err := voucher.ExtractCode(link)
	if err != nil {
		return nil, err
	}

	redeemed, err := b.repo.TopUpExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if redeemed {
		logger.Log.Warn("voucher already redeemed", logger.String("reference", code), logger.Int64("user_id", userID))
		return nil, domain.ErrVoucherRedeemed
	}

	redemption, err := b.vouchers.Redeem(ctx, link)
	if err != nil {
		logger.Log.Warn("voucher redemption failed", logger.Int64("user_id", userID), logger.Error(err))
		return nil, err
	}

	topUp := domain.TopUp{
		UserID:        userID,
		Amount:        redemption.Amount,
		Method:        topUpMethodVoucher,
		ReferenceCode: redemption.Code,
		OwnerName:     redemption.OwnerName,
		Status:        topUpStatusSuccess,
	}

	topUp.ID, err = b.repo.CreditTopUp(ctx, topUp)
	if err != nil {
		return nil, err
	}
	topUp.CreatedAt = time.Now()

	logger.Log.Info("balance topped up",
		logger.Int64("user_id", userID),
		logger.String("amount", topUp.Amount.StringFixed(2)),
		logger.String("owner", topUp.OwnerName),
	)

	return &topUp, nil
}

func (b BalanceService) TopUps(ctx context.Context, userID int64) ([]domain.TopUp, error) {
	return b.repo.TopUps(ctx, userID)
}
