package orderhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/handler/request"
	"github.com/axonake/RANGERSTORE/internal/service"
	"github.com/axonake/RANGERSTORE/pkg/dto"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderServiceMock struct{ mock.Mock }

func (m *orderServiceMock) Buy(ctx context.Context, userID, productID int64) (*domain.Order, error) {
	args := m.Called(ctx, userID, productID)
	o, _ := args.Get(0).(*domain.Order)
	return o, args.Error(1)
}

func (m *orderServiceMock) Orders(ctx context.Context, userID int64) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	o, _ := args.Get(0).([]domain.Order)
	return o, args.Error(1)
}

func (m *orderServiceMock) File(ctx context.Context, number string, by service.Requester) (string, error) {
	args := m.Called(ctx, number, by)
	return args.String(0), args.Error(1)
}

func (m *orderServiceMock) SubmitCredentials(ctx context.Context, number string, by service.Requester, method domain.LinkMethod, customerID, customerPass string) error {
	return m.Called(ctx, number, by, method, customerID, customerPass).Error(0)
}

func router(srv OrderService) http.Handler {
	h := New(srv)
	r := chi.NewRouter()
	r.Post("/products/{id}/buy", h.Buy)
	r.Get("/orders", h.ListOrders)
	r.Get("/orders/{number}/file", h.File)
	r.Post("/orders/{number}/link", h.SubmitLink)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(request.UserIDHeader, "1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBuy(t *testing.T) {
	now := time.Now()
	srv := &orderServiceMock{}
	srv.On("Buy", mock.Anything, int64(1), int64(2)).Return(&domain.Order{
		Number: "79927398713", ProductName: "Ranger ID", Status: domain.OrderStatusPending,
		CustomerPass: "never shown", CreatedAt: now, UpdatedAt: now,
	}, nil)

	rec := do(router(srv), http.MethodPost, "/products/2/buy", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var got dto.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "79927398713", got.Number)
	assert.Equal(t, "pending", got.Status)
	assert.Empty(t, got.CustomerPass)
}

func TestBuyErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrProductNotFound, http.StatusNotFound},
		{domain.ErrOutOfStock, http.StatusConflict},
		{domain.ErrInsufficientFunds, http.StatusPaymentRequired},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv := &orderServiceMock{}
			srv.On("Buy", mock.Anything, int64(1), int64(2)).Return(nil, tt.err)

			rec := do(router(srv), http.MethodPost, "/products/2/buy", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestListOrdersEmpty(t *testing.T) {
	srv := &orderServiceMock{}
	srv.On("Orders", mock.Anything, int64(1)).Return([]domain.Order{}, nil)

	rec := do(router(srv), http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20240210_id.xml")
	require.NoError(t, os.WriteFile(path, []byte("<map/>"), 0o644))

	srv := &orderServiceMock{}
	srv.On("File", mock.Anything, "79927398713", service.Requester{UserID: 1}).Return(path, nil)

	rec := do(router(srv), http.MethodGet, "/orders/79927398713/file", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<map/>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "20240210_id.xml")
}

func TestFileForbidden(t *testing.T) {
	srv := &orderServiceMock{}
	srv.On("File", mock.Anything, "79927398713", mock.Anything).Return("", domain.ErrForbidden)

	rec := do(router(srv), http.MethodGet, "/orders/79927398713/file", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderNumberValidation(t *testing.T) {
	srv := &orderServiceMock{}

	assert.Equal(t, http.StatusBadRequest, do(router(srv), http.MethodGet, "/orders/abc/file", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(router(srv), http.MethodGet, "/orders/79927398710/file", "").Code)
	srv.AssertNotCalled(t, "File", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitLink(t *testing.T) {
	srv := &orderServiceMock{}
	srv.On("SubmitCredentials", mock.Anything, "79927398713", service.Requester{UserID: 1}, domain.LinkMethodLine, "me@line.me", "pw").Return(nil)

	rec := do(router(srv), http.MethodPost, "/orders/79927398713/link",
		`{"link_method":"line","customer_id":"me@line.me","customer_pass":"pw"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	srv.AssertExpectations(t)
}

func TestSubmitLinkValidation(t *testing.T) {
	srv := &orderServiceMock{}

	rec := do(router(srv), http.MethodPost, "/orders/79927398713/link",
		`{"link_method":"facebook","customer_id":"","customer_pass":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "link_method")
	assert.Contains(t, rec.Body.String(), "customer_id")
	srv.AssertNotCalled(t, "SubmitCredentials", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
