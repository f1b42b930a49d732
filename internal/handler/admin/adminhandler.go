package adminhandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/handler/order"
	"github.com/axonake/RANGERSTORE/internal/handler/request"
	"github.com/axonake/RANGERSTORE/internal/service"
	"github.com/axonake/RANGERSTORE/pkg/dto"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/tealeg/xlsx"
)

type OrderService interface {
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
	OrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	AllOrders(ctx context.Context) ([]domain.Order, error)
	Order(ctx context.Context, number string, by service.Requester) (*domain.Order, error)
	SetStatus(ctx context.Context, number string, status domain.OrderStatus) error
}

type AdminHandler struct {
	srv OrderService
}

func New(srv OrderService) *AdminHandler {
	return &AdminHandler{
		srv: srv,
	}
}

func (h AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.srv.Dashboard(r.Context())
	if err != nil {
		logger.Log.Error("error while fetching dashboard", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	request.WriteJSON(w, http.StatusOK, dto.Dashboard{
		Pending:    d.Pending,
		Processing: d.Processing,
		Done:       d.Done,
		Products:   d.Products,
	})
}

// Orders lists orders with the status given in the query. Unknown or
// missing statuses fall back to pending.
func (h AdminHandler) Orders(w http.ResponseWriter, r *http.Request) {
	status, ok := domain.ParseOrderStatus(r.URL.Query().Get("status"))
	if !ok {
		status = domain.OrderStatusPending
	}

	orders, err := h.srv.OrdersByStatus(r.Context(), status)
	if err != nil {
		logger.Log.Error("error while fetching orders", logger.String("status", string(status)), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	dtos := make([]dto.Order, len(orders))
	for i, o := range orders {
		dtos[i] = orderhandler.ToDTO(o, true)
	}

	request.WriteJSON(w, http.StatusOK, dtos)
}

func (h AdminHandler) Order(w http.ResponseWriter, r *http.Request) {
	number, ok := request.OrderNumber(w, r)
	if !ok {
		return
	}

	o, err := h.srv.Order(r.Context(), number, service.Requester{Admin: true})
	if err != nil {
		orderhandler.WriteError(w, number, err)
		return
	}

	request.WriteJSON(w, http.StatusOK, orderhandler.ToDTO(*o, true))
}

func (h AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	number, ok := request.OrderNumber(w, r)
	if !ok {
		return
	}

	var req dto.StatusRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		logger.Log.Warn("error while decoding a status request", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	status, ok := domain.ParseOrderStatus(req.Status)
	if !ok {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	if err := h.srv.SetStatus(r.Context(), number, status); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.Log.Error("error while updating order status", logger.String("order", number), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var exportHeaders = []string{
	"Number", "Status", "Product", "Customer", "Link Method", "Link ID", "Created At", "Updated At",
}

// Export writes every order into an xlsx workbook.
func (h AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	orders, err := h.srv.AllOrders(r.Context())
	if err != nil {
		logger.Log.Error("error while fetching orders", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		logger.Log.Error("error while creating sheet", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.Number)
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(o.ProductName)
		row.AddCell().SetValue(o.UserLogin)
		row.AddCell().SetValue(string(o.LinkMethod))
		row.AddCell().SetValue(o.CustomerID)
		row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(o.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "orders.xlsx"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err = file.Write(w); err != nil {
		logger.Log.Error("error while writing xlsx", logger.Error(err))
	}
}
