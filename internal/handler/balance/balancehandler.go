package balancehandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/handler/request"
	"github.com/axonake/RANGERSTORE/internal/voucher"
	"github.com/axonake/RANGERSTORE/pkg/dto"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/shopspring/decimal"
)

type balanceService interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	TopUp(ctx context.Context, userID int64, link string) (*domain.TopUp, error)
	TopUps(ctx context.Context, userID int64) ([]domain.TopUp, error)
}

type BalanceHandler struct {
	balanceService balanceService
}

func New(svc balanceService) *BalanceHandler {
	return &BalanceHandler{
		balanceService: svc,
	}
}

func (h BalanceHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, err := request.UserID(r)
	if err != nil {
		logger.Log.Error("error while parsing user ID from header", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	balance, err := h.balanceService.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		logger.Log.Error("error while fetching balance", logger.Int64("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	request.WriteJSON(w, http.StatusOK, dto.Balance{Current: balance})
}

func (h BalanceHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req dto.TopUpRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		logger.Log.Warn("error while decoding a top-up request", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := req.IsValid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, err := request.UserID(r)
	if err != nil {
		logger.Log.Error("error while parsing user ID from header", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	topUp, err := h.balanceService.TopUp(r.Context(), userID, req.Link)
	if err != nil {
		var rejected *voucher.Error
		switch {
		case errors.Is(err, voucher.ErrInvalidLink):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrVoucherRedeemed):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.As(err, &rejected):
			http.Error(w, rejected.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, voucher.ErrInvalidPhone):
			logger.Log.Error("voucher merchant phone is misconfigured")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		default:
			logger.Log.Error("error while topping up", logger.Int64("user_id", userID), logger.Error(err))
			http.Error(w, "voucher service unavailable", http.StatusBadGateway)
		}
		return
	}

	request.WriteJSON(w, http.StatusOK, toDTO(*topUp))
}

func (h BalanceHandler) TopUps(w http.ResponseWriter, r *http.Request) {
	userID, err := request.UserID(r)
	if err != nil {
		logger.Log.Error("error while parsing user ID from header", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	topUps, err := h.balanceService.TopUps(r.Context(), userID)
	if err != nil {
		logger.Log.Error("error while fetching top-ups", logger.Int64("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(topUps) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	dtos := make([]dto.TopUp, len(topUps))
	for i, t := range topUps {
		dtos[i] = toDTO(t)
	}

	request.WriteJSON(w, http.StatusOK, dtos)
}

func toDTO(t domain.TopUp) dto.TopUp {
	return dto.TopUp{
		ID:          t.ID,
		Amount:      t.Amount,
		Method:      t.Method,
		Reference:   t.ReferenceCode,
		OwnerName:   t.OwnerName,
		Status:      t.Status,
		ProcessedAt: t.CreatedAt.Format(time.RFC3339),
	}
}
