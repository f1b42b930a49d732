package producthandler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/service"
	"github.com/axonake/RANGERSTORE/pkg/dto"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type catalogMock struct{ mock.Mock }

func (m *catalogMock) Products(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]domain.Product)
	return p, args.Error(1)
}

func (m *catalogMock) Latest(ctx context.Context, n int) ([]domain.Product, error) {
	args := m.Called(ctx, n)
	p, _ := args.Get(0).([]domain.Product)
	return p, args.Error(1)
}

func (m *catalogMock) Product(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

func (m *catalogMock) Stock(ctx context.Context, productID int64) ([]domain.Stock, error) {
	args := m.Called(ctx, productID)
	s, _ := args.Get(0).([]domain.Stock)
	return s, args.Error(1)
}

// Create drains the uploads so the test can see what the handler passed on.
func (m *catalogMock) Create(ctx context.Context, in service.ProductInput) (int64, error) {
	contents := make([]string, 0, len(in.Files))
	for _, f := range in.Files {
		b, _ := io.ReadAll(f.Content)
		contents = append(contents, f.Name+"="+string(b))
	}
	args := m.Called(ctx, in.Name, in.Price.String(), in.Image != nil, contents)
	return args.Get(0).(int64), args.Error(1)
}

func (m *catalogMock) Update(ctx context.Context, id int64, in service.ProductInput) error {
	return m.Called(ctx, id, in.Name).Error(0)
}

func (m *catalogMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *catalogMock) DeleteStock(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func router(srv CatalogService) http.Handler {
	h := New(srv)
	r := chi.NewRouter()
	r.Get("/products", h.List)
	r.Get("/products/latest", h.Latest)
	r.Get("/products/{id}", h.Get)
	r.Post("/admin/products", h.Create)
	r.Put("/admin/products/{id}", h.Update)
	r.Delete("/admin/stock/{id}", h.DeleteStock)
	return r
}

func form(t *testing.T, fields map[string]string, files map[string][]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, names := range files {
		for _, name := range names {
			fw, err := mw.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = fw.Write([]byte("<" + name + "/>"))
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestGet(t *testing.T) {
	srv := &catalogMock{}
	srv.On("Product", mock.Anything, int64(2)).Return(&domain.Product{ID: 2, Name: "Ranger ID", Price: decimal.NewFromInt(150), ImagePath: "cover.png"}, nil)
	srv.On("Product", mock.Anything, int64(9)).Return(nil, domain.ErrProductNotFound)

	rec := httptest.NewRecorder()
	router(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got dto.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "/images/cover.png", got.Image)
	assert.True(t, got.SoldOut)

	rec = httptest.NewRecorder()
	router(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatest(t *testing.T) {
	srv := &catalogMock{}
	srv.On("Latest", mock.Anything, latestCount).Return([]domain.Product{{ID: 1, StockCount: 2}}, nil)

	rec := httptest.NewRecorder()
	router(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []dto.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.False(t, got[0].SoldOut)
}

func TestCreate(t *testing.T) {
	srv := &catalogMock{}
	srv.On("Create", mock.Anything, "Ranger ID", "150.5", true, []string{"a.xml=<a.xml/>", "b.xml=<b.xml/>"}).Return(int64(4), nil)

	body, contentType := form(t,
		map[string]string{"name": " Ranger ID ", "price": "150.50", "description": "lvl 99"},
		map[string][]string{"image": {"cover.png"}, "files": {"a.xml", "b.xml"}},
	)
	req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router(srv).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":4}`, rec.Body.String())
	srv.AssertExpectations(t)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"missing name", map[string]string{"price": "10"}},
		{"bad price", map[string]string{"name": "x", "price": "ten"}},
		{"negative price", map[string]string{"name": "x", "price": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &catalogMock{}
			body, contentType := form(t, tt.fields, nil)
			req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router(srv).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateRequiresMultipart(t *testing.T) {
	rec := httptest.NewRecorder()
	router(&catalogMock{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/products", bytes.NewBufferString(`{"name":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateNotFound(t *testing.T) {
	srv := &catalogMock{}
	srv.On("Update", mock.Anything, int64(7), "Ranger ID").Return(domain.ErrProductNotFound)

	body, contentType := form(t, map[string]string{"name": "Ranger ID", "price": "1"}, nil)
	req := httptest.NewRequest(http.MethodPut, "/admin/products/7", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router(srv).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSoldStock(t *testing.T) {
	srv := &catalogMock{}
	srv.On("DeleteStock", mock.Anything, int64(5)).Return(domain.ErrStockSold)

	rec := httptest.NewRecorder()
	router(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/stock/5", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
