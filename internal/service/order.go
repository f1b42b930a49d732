package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/theplant/luhn"
)

type OrderRepository interface {
	Purchase(ctx context.Context, userID, productID int64, number string) (*domain.Order, error)
	Orders(ctx context.Context, userID int64) ([]domain.Order, error)
	OrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	AllOrders(ctx context.Context) ([]domain.Order, error)
	OrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	SetLinkCredentials(ctx context.Context, orderID int64, method domain.LinkMethod, customerID, customerPass string) error
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
}

// Requester identifies who is acting on an order.
type Requester struct {
	UserID int64
	Admin  bool
}

type OrderService struct {
	repo OrderRepository
	now  func() time.Time
	rnd  *rand.Rand
}

func NewOrderService(repo OrderRepository) *OrderService {
	return &OrderService{
		repo: repo,
		now:  time.Now,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// number builds a Luhn-valid order number from the current time and a
// random suffix.
func (s *OrderService) number() string {
	base := int(s.now().UnixMilli())*100 + s.rnd.Intn(100)
	return strconv.Itoa(base*10 + luhn.CalculateLuhn(base))
}

func (s *OrderService) Buy(ctx context.Context, userID, productID int64) (*domain.Order, error) {
	order, err := s.repo.Purchase(ctx, userID, productID, s.number())
	if err != nil {
		return nil, err
	}

	logger.Log.Info("order created",
		logger.String("order", order.Number),
		logger.Int64("user_id", userID),
		logger.Int64("product_id", productID),
	)

	return order, nil
}

func (s *OrderService) Orders(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.repo.Orders(ctx, userID)
}

// Order returns the order when the requester owns it or is an admin.
func (s *OrderService) Order(ctx context.Context, number string, by Requester) (*domain.Order, error) {
	order, err := s.repo.OrderByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	if !by.Admin && order.UserID != by.UserID {
		logger.Log.Warn("order belongs to another user", logger.String("order", number), logger.Int64("user_id", by.UserID))
		return nil, domain.ErrForbidden
	}

	return order, nil
}

// File returns the path of the credential file sold with the order.
func (s *OrderService) File(ctx context.Context, number string, by Requester) (string, error) {
	order, err := s.Order(ctx, number, by)
	if err != nil {
		return "", err
	}

	if order.StockFile == "" {
		return "", domain.ErrStockFileMissing
	}
	if _, err = os.Stat(order.StockFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Log.Error("stock file is missing on disk", logger.String("order", number), logger.String("path", order.StockFile))
			return "", domain.ErrStockFileMissing
		}
		return "", fmt.Errorf("error reading stock file: %w", err)
	}

	return order.StockFile, nil
}

func (s *OrderService) SubmitCredentials(ctx context.Context, number string, by Requester, method domain.LinkMethod, customerID, customerPass string) error {
	order, err := s.Order(ctx, number, by)
	if err != nil {
		return err
	}

	customerID = strings.TrimSpace(customerID)
	if customerID == "" || customerPass == "" {
		return domain.ErrCredentialsMissing
	}

	if err = s.repo.SetLinkCredentials(ctx, order.ID, method, customerID, customerPass); err != nil {
		return err
	}

	logger.Log.Info("link credentials saved", logger.String("order", number), logger.String("method", string(method)))

	return nil
}

func (s *OrderService) OrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return s.repo.OrdersByStatus(ctx, status)
}

func (s *OrderService) AllOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.AllOrders(ctx)
}

func (s *OrderService) SetStatus(ctx context.Context, number string, status domain.OrderStatus) error {
	order, err := s.repo.OrderByNumber(ctx, number)
	if err != nil {
		return err
	}

	if err = s.repo.UpdateOrderStatus(ctx, order.ID, status); err != nil {
		return err
	}

	logger.Log.Info("order status updated", logger.String("order", number), logger.String("status", string(status)))

	return nil
}

func (s *OrderService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	return s.repo.Dashboard(ctx)
}
