package producthandler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/handler/request"
	"github.com/axonake/RANGERSTORE/internal/service"
	"github.com/axonake/RANGERSTORE/pkg/dto"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	latestCount   = 8
	maxFormMemory = 32 << 20
	ImagesPrefix  = "/images/"
)

type CatalogService interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Latest(ctx context.Context, n int) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
	Stock(ctx context.Context, productID int64) ([]domain.Stock, error)
	Create(ctx context.Context, in service.ProductInput) (int64, error)
	Update(ctx context.Context, id int64, in service.ProductInput) error
	Delete(ctx context.Context, id int64) error
	DeleteStock(ctx context.Context, id int64) error
}

type ProductHandler struct {
	srv CatalogService
}

func New(srv CatalogService) *ProductHandler {
	return &ProductHandler{
		srv: srv,
	}
}

func (h ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.srv.Products(r.Context())
	h.writeProducts(w, products, err)
}

func (h ProductHandler) Latest(w http.ResponseWriter, r *http.Request) {
	products, err := h.srv.Latest(r.Context(), latestCount)
	h.writeProducts(w, products, err)
}

func (h ProductHandler) writeProducts(w http.ResponseWriter, products []domain.Product, err error) {
	if err != nil {
		logger.Log.Error("error while fetching products", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	dtos := make([]dto.Product, len(products))
	for i, p := range products {
		dtos[i] = toDTO(p)
	}

	request.WriteJSON(w, http.StatusOK, dtos)
}

func (h ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := request.ID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	product, err := h.srv.Product(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.Log.Error("error while fetching product", logger.Int64("product_id", id), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	request.WriteJSON(w, http.StatusOK, toDTO(*product))
}

func (h ProductHandler) Stock(w http.ResponseWriter, r *http.Request) {
	id, ok := request.ID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	stock, err := h.srv.Stock(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.Log.Error("error while fetching stock", logger.Int64("product_id", id), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	dtos := make([]dto.Stock, len(stock))
	for i, s := range stock {
		dtos[i] = dto.Stock{
			ID:        s.ID,
			Sold:      s.Sold,
			OrderID:   s.OrderID,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
		}
	}

	request.WriteJSON(w, http.StatusOK, dtos)
}

func (h ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, closeFiles, err := parseForm(r)
	if err != nil {
		logger.Log.Warn("invalid product form", logger.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeFiles()

	id, err := h.srv.Create(r.Context(), in)
	if err != nil {
		logger.Log.Error("error while creating product", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	request.WriteJSON(w, http.StatusCreated, dto.Created{ID: id})
}

func (h ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := request.ID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	in, closeFiles, err := parseForm(r)
	if err != nil {
		logger.Log.Warn("invalid product form", logger.Int64("product_id", id), logger.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeFiles()

	err = h.srv.Update(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.Log.Error("error while updating product", logger.Int64("product_id", id), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := request.ID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	err := h.srv.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.Log.Error("error while deleting product", logger.Int64("product_id", id), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h ProductHandler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	id, ok := request.ID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	err := h.srv.DeleteStock(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStockNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrStockSold):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Log.Error("error while deleting stock", logger.Int64("stock_id", id), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseForm reads the product fields and uploaded files. The returned func
// closes every opened upload.
func parseForm(r *http.Request) (service.ProductInput, func(), error) {
	noop := func() {}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return service.ProductInput{}, noop, errors.New("multipart form expected")
	}

	in := service.ProductInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if in.Name == "" {
		return in, noop, errors.New("name is required")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil || price.IsNegative() {
		return in, noop, errors.New("price must be a non-negative number")
	}
	in.Price = price

	var opened []multipart.File
	closeFiles := func() {
		for _, f := range opened {
			if err := f.Close(); err != nil {
				logger.Log.Error("error while closing upload", logger.Error(err))
			}
		}
	}

	open := func(fh *multipart.FileHeader) (service.Upload, error) {
		f, err := fh.Open()
		if err != nil {
			return service.Upload{}, err
		}
		opened = append(opened, f)
		return service.Upload{Name: fh.Filename, Content: f}, nil
	}

	if headers := r.MultipartForm.File["image"]; len(headers) > 0 && headers[0].Filename != "" {
		upload, err := open(headers[0])
		if err != nil {
			closeFiles()
			return in, noop, err
		}
		in.Image = &upload
	}

	for _, fh := range r.MultipartForm.File["files"] {
		if fh.Filename == "" {
			continue
		}
		upload, err := open(fh)
		if err != nil {
			closeFiles()
			return in, noop, err
		}
		in.Files = append(in.Files, upload)
	}

	return in, closeFiles, nil
}

func toDTO(p domain.Product) dto.Product {
	product := dto.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.StockCount,
		SoldOut:     p.SoldOut(),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.ImagePath != "" {
		product.Image = ImagesPrefix + p.ImagePath
	}
	return product
}
