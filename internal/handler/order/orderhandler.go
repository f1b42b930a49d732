package orderhandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/handler/request"
	"github.com/axonake/RANGERSTORE/internal/service"
	"github.com/axonake/RANGERSTORE/pkg/dto"
	"github.com/axonake/RANGERSTORE/pkg/logger"
)

type OrderService interface {
	Buy(ctx context.Context, userID, productID int64) (*domain.Order, error)
	Orders(ctx context.Context, userID int64) ([]domain.Order, error)
	File(ctx context.Context, number string, by service.Requester) (string, error)
	SubmitCredentials(ctx context.Context, number string, by service.Requester, method domain.LinkMethod, customerID, customerPass string) error
}

type OrderHandler struct {
	srv OrderService
}

func New(srv OrderService) *OrderHandler {
	return &OrderHandler{
		srv: srv,
	}
}

func (h OrderHandler) Buy(w http.ResponseWriter, r *http.Request) {
	productID, ok := request.ID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	userID, err := request.UserID(r)
	if err != nil {
		logger.Log.Error("error while parsing user ID from header", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	order, err := h.srv.Buy(r.Context(), userID, productID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrOutOfStock):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, domain.ErrInsufficientFunds):
			http.Error(w, err.Error(), http.StatusPaymentRequired)
		default:
			logger.Log.Error("error while buying product", logger.Int64("user_id", userID), logger.Int64("product_id", productID), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	request.WriteJSON(w, http.StatusCreated, ToDTO(*order, false))
}

func (h OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := request.UserID(r)
	if err != nil {
		logger.Log.Error("error while parsing user ID from header", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	orders, err := h.srv.Orders(r.Context(), userID)
	if err != nil {
		logger.Log.Error("error while fetching orders", logger.Int64("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	dtos := make([]dto.Order, len(orders))
	for i, order := range orders {
		dtos[i] = ToDTO(order, false)
	}

	request.WriteJSON(w, http.StatusOK, dtos)
}

func (h OrderHandler) File(w http.ResponseWriter, r *http.Request) {
	number, ok := request.OrderNumber(w, r)
	if !ok {
		return
	}

	by, err := request.Requester(r)
	if err != nil {
		logger.Log.Error("error while parsing user ID from header", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	path, err := h.srv.File(r.Context(), number, by)
	if err != nil {
		WriteError(w, number, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	w.Header().Set("Content-Type", "application/xml")
	http.ServeFile(w, r, path)
}

func (h OrderHandler) SubmitLink(w http.ResponseWriter, r *http.Request) {
	number, ok := request.OrderNumber(w, r)
	if !ok {
		return
	}

	var req dto.LinkRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		logger.Log.Warn("error while decoding a link request", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := req.IsValid(); err != nil {
		logger.Log.Warn("invalid link fields", logger.String("order", number), logger.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	by, err := request.Requester(r)
	if err != nil {
		logger.Log.Error("error while parsing user ID from header", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	method, _ := domain.ParseLinkMethod(req.Method)
	err = h.srv.SubmitCredentials(r.Context(), number, by, method, req.CustomerID, req.CustomerPass)
	if err != nil {
		WriteError(w, number, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// WriteError maps order lookup errors to responses.
func WriteError(w http.ResponseWriter, number string, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case errors.Is(err, domain.ErrStockFileMissing):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrCredentialsMissing):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Log.Error("error while handling order", logger.String("order", number), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// ToDTO renders an order. Login credentials are only included for admins.
func ToDTO(order domain.Order, withCredentials bool) dto.Order {
	o := dto.Order{
		Number:     order.Number,
		ProductID:  order.ProductID,
		Product:    order.ProductName,
		Status:     string(order.Status),
		LinkMethod: string(order.LinkMethod),
		CreatedAt:  order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  order.UpdatedAt.Format(time.RFC3339),
	}
	if withCredentials {
		o.Owner = order.UserLogin
		o.CustomerID = order.CustomerID
		o.CustomerPass = order.CustomerPass
	}
	return o
}
