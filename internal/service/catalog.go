package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CatalogRepository interface {
	Products(ctx context.Context, limit int) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product, files []string) (int64, error)
	UpdateProduct(ctx context.Context, product domain.Product, files []string) error
	DeleteProduct(ctx context.Context, id int64) (string, []string, error)
	Stock(ctx context.Context, productID int64) ([]domain.Stock, error)
	DeleteStock(ctx context.Context, id int64) (string, error)
}

// Upload is a file received from an admin form.
type Upload struct {
	Name    string
	Content io.Reader
}

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image       *Upload
	Files       []Upload
}

type CatalogService struct {
	repo        CatalogRepository
	productsDir string
	imagesDir   string
	now         func() time.Time
}

func NewCatalogService(repo CatalogRepository, productsDir, imagesDir string) *CatalogService {
	return &CatalogService{
		repo:        repo,
		productsDir: productsDir,
		imagesDir:   imagesDir,
		now:         time.Now,
	}
}

func (s *CatalogService) Products(ctx context.Context) ([]domain.Product, error) {
	return s.repo.Products(ctx, 0)
}

func (s *CatalogService) Latest(ctx context.Context, n int) ([]domain.Product, error) {
	return s.repo.Products(ctx, n)
}

func (s *CatalogService) Product(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.Product(ctx, id)
}

func (s *CatalogService) Stock(ctx context.Context, productID int64) ([]domain.Stock, error) {
	if _, err := s.repo.Product(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.Stock(ctx, productID)
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (int64, error) {
	product := domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}

	var saved []string
	if in.Image != nil {
		name, err := s.save(s.imagesDir, *in.Image)
		if err != nil {
			return 0, err
		}
		product.ImagePath = name
		saved = append(saved, filepath.Join(s.imagesDir, name))
	}

	files, err := s.saveStock(in.Files)
	saved = append(saved, files...)
	if err != nil {
		removeFiles(saved)
		return 0, err
	}

	id, err := s.repo.CreateProduct(ctx, product, files)
	if err != nil {
		removeFiles(saved)
		return 0, err
	}

	logger.Log.Info("product created", logger.Int64("product_id", id), logger.Int("stock", len(files)))

	return id, nil
}

func (s *CatalogService) Update(ctx context.Context, id int64, in ProductInput) error {
	current, err := s.repo.Product(ctx, id)
	if err != nil {
		return err
	}

	product := domain.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImagePath:   current.ImagePath,
	}

	var saved []string
	if in.Image != nil {
		name, err := s.save(s.imagesDir, *in.Image)
		if err != nil {
			return err
		}
		product.ImagePath = name
		saved = append(saved, filepath.Join(s.imagesDir, name))
	}

	files, err := s.saveStock(in.Files)
	saved = append(saved, files...)
	if err != nil {
		removeFiles(saved)
		return err
	}

	if err = s.repo.UpdateProduct(ctx, product, files); err != nil {
		removeFiles(saved)
		return err
	}

	if in.Image != nil && current.ImagePath != "" {
		removeFiles([]string{filepath.Join(s.imagesDir, current.ImagePath)})
	}

	logger.Log.Info("product updated", logger.Int64("product_id", id), logger.Int("added_stock", len(files)))

	return nil
}

func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	image, files, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}

	if image != "" {
		files = append(files, filepath.Join(s.imagesDir, image))
	}
	removeFiles(files)

	logger.Log.Info("product deleted", logger.Int64("product_id", id))

	return nil
}

func (s *CatalogService) DeleteStock(ctx context.Context, id int64) error {
	file, err := s.repo.DeleteStock(ctx, id)
	if err != nil {
		return err
	}

	removeFiles([]string{file})

	return nil
}

func (s *CatalogService) saveStock(uploads []Upload) ([]string, error) {
	files := make([]string, 0, len(uploads))
	for _, u := range uploads {
		name, err := s.save(s.productsDir, u)
		if err != nil {
			return files, err
		}
		files = append(files, filepath.Join(s.productsDir, name))
	}
	return files, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeName(name string) string {
	name = unsafeChars.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// save writes the upload into dir under a timestamped name and returns
// that name.
func (s *CatalogService) save(dir string, u Upload) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating upload directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s", s.now().Format("20060102150405"), uuid.NewString()[:8], safeName(u.Name))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("error creating %s: %w", name, err)
	}

	_, err = io.Copy(f, u.Content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		removeFiles([]string{filepath.Join(dir, name)})
		return "", fmt.Errorf("error writing %s: %w", name, err)
	}

	return name, nil
}

func removeFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Log.Warn("error removing file", logger.String("path", p), logger.Error(err))
		}
	}
}
